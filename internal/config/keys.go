package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	HelpKey       = "help"

	// Environment variable prefix. TRIGGER_MAX_INFLIGHT sets max-inflight.
	EnvPrefix = "TRIGGER"

	// Top-level configuration keys
	LogLevelKey       = "log-level"
	ListenAddrKey     = "listen-addr"
	BodyLimitKey      = "body-limit"
	RequestTimeoutKey = "request-timeout"
	CORSOriginsKey    = "cors-origins"

	// Engine keys
	MaxInFlightKey   = "max-inflight"
	AdmissionWaitKey = "admission-wait"
	WorkersKey       = "workers"
	KeyCacheSizeKey  = "key-cache-size"

	// Backing services
	StorageDirKey  = "storage-dir"
	StorageMBKey   = "storage-mb"
	RedisURLKey    = "redis-url"
	QueueNameKey   = "queue-name"
	JobTTLKey      = "job-ttl"
	JobWorkersKey  = "job-workers"
	DatabaseURLKey = "database-url"

	// Trust boundary keys
	BoundaryURLKey          = "boundary-url"
	BoundaryRetryTimeoutKey = "boundary-retry-timeout"
	BoundaryKeyFileKey      = "boundary-key-file"
)
