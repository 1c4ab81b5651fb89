// Package producer builds encrypted strategy payloads on the client side.
// It runs the key ceremony, encrypts the bounds and assembles the wire
// payload the engine consumes.
package producer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/luxfi/trigger/fhe"
	"github.com/luxfi/trigger/trigger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNegativePrice  = errors.New("price is negative")
	ErrFractionalCent = errors.New("price has a fraction of a cent")
	ErrPriceRange     = errors.New("price exceeds the 32-bit cent range")
)

var maxCents = decimal.NewFromInt(math.MaxUint32)

// Cents converts a dollar amount to integer cents. The conversion is exact:
// fractions of a cent are rejected rather than truncated.
func Cents(dollars decimal.Decimal) (uint32, error) {
	cents := dollars.Shift(2)
	switch {
	case cents.IsNegative():
		return 0, fmt.Errorf("%w: %s", ErrNegativePrice, dollars)
	case !cents.IsInteger():
		return 0, fmt.Errorf("%w: %s", ErrFractionalCent, dollars)
	case cents.GreaterThan(maxCents):
		return 0, fmt.Errorf("%w: %s", ErrPriceRange, dollars)
	}
	return uint32(cents.IntPart()), nil
}

// StrategyInput is what a user submits to create a strategy.
type StrategyInput struct {
	UserID       string          `json:"user_id"`
	StrategyType string          `json:"strategy_type"`
	AssetIn      string          `json:"asset_in"`
	AssetOut     string          `json:"asset_out"`
	Amount       decimal.Decimal `json:"amount"`
	UpperBound   decimal.Decimal `json:"upper_bound"`
	LowerBound   decimal.Decimal `json:"lower_bound"`
}

// Payload is the encrypted strategy handed to the orchestrator, which later
// adds the current price and forwards it to the engine.
type Payload struct {
	UserID              string          `json:"user_id"`
	StrategyType        string          `json:"strategy_type"`
	AssetIn             string          `json:"asset_in"`
	AssetOut            string          `json:"asset_out"`
	Amount              decimal.Decimal `json:"amount"`
	ZKPData             json.RawMessage `json:"zkp_data"`
	EncryptedUpperBound string          `json:"encrypted_upper_bound"`
	EncryptedLowerBound string          `json:"encrypted_lower_bound"`
	ServerKey           string          `json:"server_key,omitempty"`
	ServerKeyHandle     string          `json:"server_key_handle,omitempty"`
	EncryptedClientKey  string          `json:"encrypted_client_key,omitempty"`
	PayloadID           string          `json:"payload_id"`
}

// Request returns the engine request for this payload at a price.
func (p *Payload) Request(priceCents uint64) *trigger.Request {
	return &trigger.Request{
		StrategyType:        p.StrategyType,
		EncryptedUpperBound: p.EncryptedUpperBound,
		EncryptedLowerBound: p.EncryptedLowerBound,
		ServerKey:           p.ServerKey,
		ServerKeyHandle:     p.ServerKeyHandle,
		CurrentPriceCents:   priceCents,
		EncryptedClientKey:  p.EncryptedClientKey,
		ZKPData:             p.ZKPData,
		PayloadID:           p.PayloadID,
	}
}

// Ceremony is one key generation: the private key stays with the user or
// the trust boundary, the evaluation key goes to the engine.
type Ceremony struct {
	PrivateKey    *fhe.PrivateKey
	EvaluationKey *fhe.EvaluationKey
}

// EncryptBound encrypts a dollar bound as cents.
func (c *Ceremony) EncryptBound(dollars decimal.Decimal) (*fhe.Integer, error) {
	cents, err := Cents(dollars)
	if err != nil {
		return nil, err
	}
	return fhe.NewEncryptor(c.PrivateKey).EncryptUint32(cents)
}

// BuildOptions controls which key material the payload carries.
type BuildOptions struct {
	// ServerKeyHandle replaces the inline server key with an uploaded one.
	ServerKeyHandle string
	// OmitClientKey leaves the private key out, for engines that reveal
	// through a separate trust boundary.
	OmitClientKey bool
}

// Producer creates ceremonies and payloads for one parameter set.
type Producer struct {
	params fhe.Parameters
	logger *zap.Logger
}

// New creates a producer.
func New(params fhe.Parameters, logger *zap.Logger) *Producer {
	return &Producer{params: params, logger: logger.Named("producer")}
}

// NewCeremony generates a fresh key pair.
func (p *Producer) NewCeremony() *Ceremony {
	sk, ek := fhe.NewKeyGenerator(p.params).GenCeremony()
	p.logger.Info("generated keys", zap.Stringer("ceremony", sk.Ceremony), zap.String("params", p.params.Name()))
	return &Ceremony{PrivateKey: sk, EvaluationKey: ek}
}

// Build encrypts the bounds of in under c and assembles the payload.
func (p *Producer) Build(c *Ceremony, in StrategyInput, opts BuildOptions) (*Payload, error) {
	if _, err := trigger.ParseStrategyType(in.StrategyType); err != nil {
		return nil, err
	}

	upper, err := c.EncryptBound(in.UpperBound)
	if err != nil {
		return nil, fmt.Errorf("upper bound: %w", err)
	}
	lower, err := c.EncryptBound(in.LowerBound)
	if err != nil {
		return nil, fmt.Errorf("lower bound: %w", err)
	}

	zkp, err := MockProof()
	if err != nil {
		return nil, err
	}

	out := &Payload{
		UserID:          in.UserID,
		StrategyType:    in.StrategyType,
		AssetIn:         in.AssetIn,
		AssetOut:        in.AssetOut,
		Amount:          in.Amount,
		ZKPData:         zkp,
		ServerKeyHandle: opts.ServerKeyHandle,
		PayloadID:       uuid.NewString(),
	}
	if out.EncryptedUpperBound, err = fhe.EncodeHex(upper); err != nil {
		return nil, err
	}
	if out.EncryptedLowerBound, err = fhe.EncodeHex(lower); err != nil {
		return nil, err
	}
	if opts.ServerKeyHandle == "" {
		if out.ServerKey, err = fhe.EncodeHex(c.EvaluationKey); err != nil {
			return nil, err
		}
	}
	if !opts.OmitClientKey {
		if out.EncryptedClientKey, err = fhe.EncodeHex(c.PrivateKey); err != nil {
			return nil, err
		}
	}

	p.logger.Info("built payload",
		zap.String("payload_id", out.PayloadID),
		zap.String("user_id", in.UserID),
		zap.String("strategy", in.StrategyType),
		zap.Bool("client_key", !opts.OmitClientKey))
	return out, nil
}

// MockProof returns the placeholder proof the engine accepts without
// verification, serialized as a JSON string the way orchestrators expect.
func MockProof() (json.RawMessage, error) {
	inner, err := json.Marshal(struct {
		Proof         []int `json:"proof"`
		PublicSignals []int `json:"publicSignals"`
	}{
		Proof:         make([]int, 24),
		PublicSignals: []int{12345, 67890, 0, 0},
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(inner))
}
