package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BuildFlagSet returns the flags shared by the trigger binaries.
func BuildFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "JSON or YAML config file")
	fs.BoolP(HelpKey, "h", false, "display usage text")

	fs.String(LogLevelKey, defaultLogLevel, "log level (debug, info, warn, error)")
	fs.String(ListenAddrKey, defaultListenAddr, "HTTP listen address")
	fs.Int64(BodyLimitKey, defaultBodyLimit, "maximum request body in bytes")
	fs.Duration(RequestTimeoutKey, defaultRequestTimeout, "per-request timeout")
	fs.StringSlice(CORSOriginsKey, []string{"*"}, "allowed CORS origins")

	fs.Int(MaxInFlightKey, defaultMaxInFlight, "maximum concurrent evaluations")
	fs.Duration(AdmissionWaitKey, defaultAdmissionWait, "how long a request may wait for an evaluation slot")
	fs.Int(WorkersKey, 0, "goroutines per bitwise operation (0 = GOMAXPROCS)")
	fs.Int(KeyCacheSizeKey, defaultKeyCacheSize, "evaluators cached for uploaded keys")

	fs.String(StorageDirKey, "", "directory for uploaded keys and job payloads (empty = memory)")
	fs.Int64(StorageMBKey, defaultStorageMB, "memory storage capacity in MiB")
	fs.String(RedisURLKey, "", "Redis URL for the job queue (empty = in-process queue)")
	fs.String(QueueNameKey, defaultQueueName, "job queue name")
	fs.Duration(JobTTLKey, defaultJobTTL, "how long job records are kept")
	fs.Int(JobWorkersKey, defaultJobWorkers, "job workers run in process")
	fs.String(DatabaseURLKey, "", "Postgres URL for the reveal audit log")

	fs.String(BoundaryURLKey, "", "trust boundary base URL (empty = co-located one-shot keys)")
	fs.Duration(BoundaryRetryTimeoutKey, defaultBoundaryRetryTimeout, "total retry budget for boundary calls")
	fs.String(BoundaryKeyFileKey, "", "hex private key file held by the trust boundary")
	return fs
}

// BuildViper binds fs and the TRIGGER_ environment, then reads the config
// file if one is set. Precedence: flags, environment, config file, defaults.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Flags are upper-cased with hyphens replaced by underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if filename := v.GetString(ConfigFileKey); filename != "" {
		v.SetConfigFile(os.ExpandEnv(filename))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

// SetDefaultConfigValues sets defaults for keys not backed by a flag.
func SetDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(ListenAddrKey, defaultListenAddr)
	v.SetDefault(BodyLimitKey, defaultBodyLimit)
	v.SetDefault(RequestTimeoutKey, defaultRequestTimeout)
	v.SetDefault(MaxInFlightKey, defaultMaxInFlight)
	v.SetDefault(AdmissionWaitKey, defaultAdmissionWait)
	v.SetDefault(KeyCacheSizeKey, defaultKeyCacheSize)
	v.SetDefault(StorageMBKey, defaultStorageMB)
	v.SetDefault(QueueNameKey, defaultQueueName)
	v.SetDefault(JobTTLKey, defaultJobTTL)
	v.SetDefault(JobWorkersKey, defaultJobWorkers)
	v.SetDefault(BoundaryRetryTimeoutKey, defaultBoundaryRetryTimeout)
}

// BuildConfig unmarshals v into a Config.
func BuildConfig(v *viper.Viper) (Config, error) {
	SetDefaultConfigValues(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	return cfg, nil
}

// NewConfig builds and validates a Config.
func NewConfig(v *viper.Viper) (Config, error) {
	cfg, err := BuildConfig(v)
	if err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

// Load parses args against the shared flag set and returns the validated
// configuration. pflag.ErrHelp is returned when help was requested.
func Load(name string, args []string) (Config, error) {
	fs := BuildFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if help, _ := fs.GetBool(HelpKey); help {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n%s", name, fs.FlagUsages())
		return Config{}, pflag.ErrHelp
	}
	v, err := BuildViper(fs)
	if err != nil {
		return Config{}, err
	}
	return NewConfig(v)
}
