// Command trigger-payload generates keys and encrypted strategy payloads.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/luxfi/trigger/fhe"
	"github.com/luxfi/trigger/internal/producer"
	"github.com/luxfi/trigger/server"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trigger-payload",
	Short: "Generate keys and encrypted strategy payloads",
	Long: `trigger-payload runs the client side of the trigger engine: it generates
key ceremonies, encrypts price bounds and assembles evaluation payloads.`,
	Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("params", "PN10QP27", "parameter set ("+strings.Join(fhe.ParameterSetNames(), ", ")+")")
	rootCmd.PersistentFlags().Bool("verbose", false, "log progress to stderr")

	keygenCmd.Flags().String("out", ".", "directory for client.key and server.key")

	encryptCmd.Flags().String("key", "client.key", "hex private key file")
	encryptCmd.Flags().String("price", "", "price in dollars, e.g. 120.50")
	_ = encryptCmd.MarkFlagRequired("price")

	payloadCmd.Flags().String("user", "", "user id")
	payloadCmd.Flags().String("strategy", "", "strategy type, e.g. BRACKET_ORDER_LONG")
	payloadCmd.Flags().String("asset-in", "", "asset sold")
	payloadCmd.Flags().String("asset-out", "", "asset bought")
	payloadCmd.Flags().String("amount", "0", "order amount")
	payloadCmd.Flags().String("upper", "0", "upper bound in dollars")
	payloadCmd.Flags().String("lower", "0", "lower bound in dollars")
	payloadCmd.Flags().String("engine-url", "", "upload the evaluation key to this engine and reference it by handle")
	payloadCmd.Flags().String("boundary-key", "", "write the private key here for the trust boundary instead of embedding it")
	_ = payloadCmd.MarkFlagRequired("strategy")

	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(payloadCmd)
}

func newProducer(cmd *cobra.Command) (*producer.Producer, error) {
	name, _ := cmd.Flags().GetString("params")
	params, err := fhe.ParametersByName(name)
	if err != nil {
		return nil, err
	}
	logger := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}
	return producer.New(params, logger), nil
}

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	s, _ := cmd.Flags().GetString(name)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func writeHex(path string, v interface{ MarshalBinary() ([]byte, error) }) error {
	s, err := fhe.EncodeHex(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s+"\n"), 0o600)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Run a key ceremony",
	Long:  `Generate a private key (client.key) and an evaluation key (server.key), both hex encoded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProducer(cmd)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")

		c := p.NewCeremony()
		if err := writeHex(filepath.Join(out, "client.key"), c.PrivateKey); err != nil {
			return fmt.Errorf("write client key: %w", err)
		}
		if err := writeHex(filepath.Join(out, "server.key"), c.EvaluationKey); err != nil {
			return fmt.Errorf("write server key: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ceremony %s\n", c.PrivateKey.Ceremony)
		return nil
	},
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a price bound",
	RunE: func(cmd *cobra.Command, args []string) error {
		keyFile, _ := cmd.Flags().GetString("key")
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return err
		}
		var sk fhe.PrivateKey
		if err := fhe.DecodeHex(strings.TrimSpace(string(data)), &sk); err != nil {
			return fmt.Errorf("decode %s: %w", keyFile, err)
		}
		price, err := decimalFlag(cmd, "price")
		if err != nil {
			return err
		}

		c := &producer.Ceremony{PrivateKey: &sk}
		x, err := c.EncryptBound(price)
		if err != nil {
			return err
		}
		s, err := fhe.EncodeHex(x)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	},
}

var payloadCmd = &cobra.Command{
	Use:   "payload",
	Short: "Build an encrypted strategy payload",
	Long: `Run a fresh key ceremony, encrypt the bounds and print the payload as JSON.

With --engine-url the evaluation key is uploaded once and the payload carries
its handle. With --boundary-key the private key is written to a file for the
trust boundary and left out of the payload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProducer(cmd)
		if err != nil {
			return err
		}

		in := producer.StrategyInput{}
		in.UserID, _ = cmd.Flags().GetString("user")
		in.StrategyType, _ = cmd.Flags().GetString("strategy")
		in.AssetIn, _ = cmd.Flags().GetString("asset-in")
		in.AssetOut, _ = cmd.Flags().GetString("asset-out")
		if in.Amount, err = decimalFlag(cmd, "amount"); err != nil {
			return err
		}
		if in.UpperBound, err = decimalFlag(cmd, "upper"); err != nil {
			return err
		}
		if in.LowerBound, err = decimalFlag(cmd, "lower"); err != nil {
			return err
		}

		c := p.NewCeremony()
		var opts producer.BuildOptions

		if boundaryKey, _ := cmd.Flags().GetString("boundary-key"); boundaryKey != "" {
			if err := writeHex(boundaryKey, c.PrivateKey); err != nil {
				return fmt.Errorf("write boundary key: %w", err)
			}
			opts.OmitClientKey = true
		}
		if engineURL, _ := cmd.Flags().GetString("engine-url"); engineURL != "" {
			if opts.ServerKeyHandle, err = uploadKey(engineURL, c.EvaluationKey); err != nil {
				return err
			}
		}

		payload, err := p.Build(c, in, opts)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	},
}

// uploadKey posts the evaluation key to the engine's /keys route.
func uploadKey(engineURL string, ek *fhe.EvaluationKey) (string, error) {
	body, err := ek.MarshalBinary()
	if err != nil {
		return "", err
	}
	resp, err := http.Post(strings.TrimRight(engineURL, "/")+"/keys", "application/octet-stream", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("upload key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("upload key: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	var out server.KeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload key: %w", err)
	}
	return out.Handle, nil
}
