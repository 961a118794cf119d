// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"trustbridge/internal/backchannel"
	dErrors "trustbridge/pkg/domain-errors"
	strutil "trustbridge/pkg/platform/strings"
)

// Config is built once in main and passed down; nothing reads it globally.
type Config struct {
	Server      Server
	Log         Log
	Trust       Trust
	Broker      Broker
	Backchannel Backchannel
	Redis       RedisConfig
	Kafka       Kafka
	Postgres    Postgres
	Audit       Audit
	RateLimit   RateLimit
	// Clients are "id:bcrypt-hash" pairs of registered relying parties.
	Clients []string
}

type Server struct {
	Addr            string
	AdminToken      string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

type Log struct {
	Level  string
	Format string
}

// Trust configures the network registry. Source is "file://path.yaml" or
// "postgres".
type Trust struct {
	Source        string
	NetworkID     string
	HubProviderID string
	MaxHops       int
	// SeedFile, when set with a postgres source, is imported at startup.
	SeedFile      string
}

// IsFile reports whether networks are read from a YAML document.
func (t Trust) IsFile() bool {
	return strings.HasPrefix(t.Source, "file://")
}

// FilePath is the YAML document path of a file source.
func (t Trust) FilePath() string {
	return strings.TrimPrefix(t.Source, "file://")
}

type Broker struct {
	MaxTrustDepth        int
	Issuer               string
	Audience             string
	SigningKey           string
	ClientID             string
	ClientSecret         string
	RedirectURL          string
	TokenTTL             time.Duration
	FlowTTL              time.Duration
	PollInterval         time.Duration
	RetryMaxTries        uint
	RetryInitialInterval time.Duration
	HTTPTimeout          time.Duration
}

type Backchannel struct {
	Mode            backchannel.Kind
	FileRoot        string
	Mock            MockBackchannel
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

// MockBackchannel is passed to the simulator as is; the simulator clamps
// out-of-range rates itself.
type MockBackchannel struct {
	Delay        time.Duration
	ApprovalRate int
	ErrorRate    int
	AutoApprove  bool
}

// RedisConfig is empty-URL disabled.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka is disabled when Brokers is empty.
type Kafka struct {
	Brokers       []string
	ClientID      string
	TopicPrefix   string
	ConsumerGroup string
}

func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// Postgres is disabled when DSN is empty.
type Postgres struct {
	DSN string
}

// RateLimit bounds request rates per authenticated client and per caller IP
// on unauthenticated routes.
type RateLimit struct {
	Disabled    bool
	ClientRPS   float64
	ClientBurst int
	PublicRPS   float64
	PublicBurst int
	IdleTTL     time.Duration
}

type Audit struct {
	AsyncBuffer    int
	OpsSampleRate  float64
	MemoryCapacity int
}

type rawEnv struct {
	Addr            string        `env:"TRUSTBRIDGE_ADDR" envDefault:":8080"`
	AdminToken      string        `env:"ADMIN_API_TOKEN"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	TrustSource   string `env:"TRUST_NETWORK_SOURCE" envDefault:"file://networks.yaml"`
	NetworkID     string `env:"TRUST_NETWORK_ID"`
	HubProviderID string `env:"TRUST_HUB_PROVIDER_ID"`
	MaxHops       int    `env:"TRUST_MAX_HOPS" envDefault:"4"`
	SeedFile      string `env:"TRUST_SEED_FILE"`

	MaxTrustDepth        int           `env:"BROKER_MAX_TRUST_DEPTH" envDefault:"3"`
	Issuer               string        `env:"BROKER_ISSUER" envDefault:"http://localhost:8080"`
	Audience             string        `env:"BROKER_AUDIENCE" envDefault:"trustbridge"`
	SigningKey           string        `env:"SIGNING_KEY"`
	ClientID             string        `env:"BROKER_CLIENT_ID" envDefault:"trustbridge"`
	ClientSecret         string        `env:"BROKER_CLIENT_SECRET"`
	RedirectURL          string        `env:"BROKER_REDIRECT_URL" envDefault:"http://localhost:8080/federation/callback"`
	TokenTTL             time.Duration `env:"BROKER_TOKEN_TTL" envDefault:"15m"`
	FlowTTL              time.Duration `env:"BROKER_FLOW_TTL" envDefault:"10m"`
	PollInterval         time.Duration `env:"BROKER_POLL_INTERVAL" envDefault:"5s"`
	RetryMaxTries        uint          `env:"BROKER_RETRY_MAX_TRIES" envDefault:"3"`
	RetryInitialInterval time.Duration `env:"BROKER_RETRY_INITIAL_INTERVAL" envDefault:"200ms"`
	HTTPTimeout          time.Duration `env:"BROKER_HTTP_TIMEOUT" envDefault:"10s"`

	BackchannelMode  string        `env:"BACKCHANNEL_MODE" envDefault:"mock"`
	FileRoot         string        `env:"BACKCHANNEL_FILE_ROOT" envDefault:"./backchannel"`
	MockDelayMS      int           `env:"BACKCHANNEL_MOCK_DELAY_MS" envDefault:"2000"`
	MockApprovalRate int           `env:"BACKCHANNEL_MOCK_APPROVAL_RATE" envDefault:"80"`
	MockErrorRate    int           `env:"BACKCHANNEL_MOCK_ERROR_RATE" envDefault:"10"`
	MockAutoApprove  bool          `env:"BACKCHANNEL_MOCK_AUTO_APPROVE" envDefault:"true"`
	CleanupInterval  time.Duration `env:"BACKCHANNEL_CLEANUP_INTERVAL" envDefault:"1m"`
	MaxAge           time.Duration `env:"BACKCHANNEL_MAX_AGE" envDefault:"10m"`

	RedisURL          string        `env:"REDIS_URL"`
	RedisPoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RedisDialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	RedisReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	RedisWriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaClientID      string   `env:"KAFKA_CLIENT_ID" envDefault:"trustbridge"`
	KafkaTopicPrefix   string   `env:"KAFKA_TOPIC_PREFIX" envDefault:"trustbridge.audit"`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP"`

	PostgresDSN string `env:"POSTGRES_DSN"`

	AuditAsyncBuffer    int     `env:"AUDIT_ASYNC_BUFFER" envDefault:"1024"`
	AuditOpsSampleRate  float64 `env:"AUDIT_OPS_SAMPLE_RATE" envDefault:"1"`
	AuditMemoryCapacity int     `env:"AUDIT_MEMORY_CAPACITY" envDefault:"10000"`

	RateLimitDisabled    bool          `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
	RateLimitClientRPS   float64       `env:"RATE_LIMIT_CLIENT_RPS" envDefault:"5"`
	RateLimitClientBurst int           `env:"RATE_LIMIT_CLIENT_BURST" envDefault:"20"`
	RateLimitPublicRPS   float64       `env:"RATE_LIMIT_PUBLIC_RPS" envDefault:"20"`
	RateLimitPublicBurst int           `env:"RATE_LIMIT_PUBLIC_BURST" envDefault:"40"`
	RateLimitIdleTTL     time.Duration `env:"RATE_LIMIT_IDLE_TTL" envDefault:"10m"`

	Clients []string `env:"CLIENTS" envSeparator:","`
}

// Load parses the environment.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom parses the given variables instead of the process environment when
// vars is non-nil.
func LoadFrom(vars map[string]string) (Config, error) {
	var raw rawEnv
	opts := env.Options{}
	if vars != nil {
		opts.Environment = vars
	}
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return Config{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "invalid environment")
	}
	cfg := raw.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (r rawEnv) normalize() Config {
	return Config{
		Server: Server{
			Addr:            r.Addr,
			AdminToken:      r.AdminToken,
			ShutdownTimeout: r.ShutdownTimeout,
			RequestTimeout:  r.RequestTimeout,
		},
		Log: Log{Level: strings.ToLower(r.LogLevel), Format: strings.ToLower(r.LogFormat)},
		Trust: Trust{
			Source:        strings.TrimSpace(r.TrustSource),
			NetworkID:     r.NetworkID,
			HubProviderID: r.HubProviderID,
			MaxHops:       r.MaxHops,
			SeedFile:      strings.TrimSpace(r.SeedFile),
		},
		Broker: Broker{
			MaxTrustDepth:        r.MaxTrustDepth,
			Issuer:               r.Issuer,
			Audience:             strings.TrimSpace(r.Audience),
			SigningKey:           r.SigningKey,
			ClientID:             strings.TrimSpace(r.ClientID),
			ClientSecret:         r.ClientSecret,
			RedirectURL:          r.RedirectURL,
			TokenTTL:             r.TokenTTL,
			FlowTTL:              r.FlowTTL,
			PollInterval:         r.PollInterval,
			RetryMaxTries:        r.RetryMaxTries,
			RetryInitialInterval: r.RetryInitialInterval,
			HTTPTimeout:          r.HTTPTimeout,
		},
		Backchannel: Backchannel{
			Mode:     backchannel.Kind(strings.ToLower(strings.TrimSpace(r.BackchannelMode))),
			FileRoot: strings.TrimSpace(r.FileRoot),
			Mock: MockBackchannel{
				Delay:        time.Duration(r.MockDelayMS) * time.Millisecond,
				ApprovalRate: r.MockApprovalRate,
				ErrorRate:    r.MockErrorRate,
				AutoApprove:  r.MockAutoApprove,
			},
			CleanupInterval: r.CleanupInterval,
			MaxAge:          r.MaxAge,
		},
		Redis: RedisConfig{
			URL:          r.RedisURL,
			PoolSize:     r.RedisPoolSize,
			MinIdleConns: r.RedisMinIdleConns,
			DialTimeout:  r.RedisDialTimeout,
			ReadTimeout:  r.RedisReadTimeout,
			WriteTimeout: r.RedisWriteTimeout,
		},
		Kafka: Kafka{
			Brokers:       strutil.DedupeAndTrim(r.KafkaBrokers),
			ClientID:      r.KafkaClientID,
			TopicPrefix:   r.KafkaTopicPrefix,
			ConsumerGroup: r.KafkaConsumerGroup,
		},
		Postgres: Postgres{DSN: r.PostgresDSN},
		Audit: Audit{
			AsyncBuffer:    r.AuditAsyncBuffer,
			OpsSampleRate:  r.AuditOpsSampleRate,
			MemoryCapacity: r.AuditMemoryCapacity,
		},
		RateLimit: RateLimit{
			Disabled:    r.RateLimitDisabled,
			ClientRPS:   r.RateLimitClientRPS,
			ClientBurst: r.RateLimitClientBurst,
			PublicRPS:   r.RateLimitPublicRPS,
			PublicBurst: r.RateLimitPublicBurst,
			IdleTTL:     r.RateLimitIdleTTL,
		},
		Clients: strutil.DedupeAndTrim(r.Clients),
	}
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	invalid := func(msg string) error {
		return dErrors.New(dErrors.CodeConfiguration, msg)
	}
	switch {
	case c.Trust.NetworkID == "":
		return invalid("TRUST_NETWORK_ID is required")
	case c.Trust.HubProviderID == "":
		return invalid("TRUST_HUB_PROVIDER_ID is required")
	case c.Trust.MaxHops < 1:
		return invalid("TRUST_MAX_HOPS must be at least 1")
	case !c.Trust.IsFile() && c.Trust.Source != "postgres":
		return invalid(fmt.Sprintf("unknown TRUST_NETWORK_SOURCE %q", c.Trust.Source))
	case c.Trust.Source == "postgres" && c.Postgres.DSN == "":
		return invalid("POSTGRES_DSN is required for the postgres trust source")
	case c.Broker.MaxTrustDepth < 1:
		return invalid("BROKER_MAX_TRUST_DEPTH must be at least 1")
	case c.Broker.Audience == "":
		return invalid("BROKER_AUDIENCE is required")
	case c.Broker.ClientID == "":
		return invalid("BROKER_CLIENT_ID is required")
	case len(c.Broker.SigningKey) < 32:
		return invalid("SIGNING_KEY must be at least 32 bytes")
	case !c.Backchannel.Mode.IsValid():
		return invalid(fmt.Sprintf("unknown BACKCHANNEL_MODE %q", c.Backchannel.Mode))
	case c.Backchannel.Mode == backchannel.KindFile && c.Backchannel.FileRoot == "":
		return invalid("BACKCHANNEL_FILE_ROOT is required in file mode")
	case c.Backchannel.Mode == backchannel.KindRedis && c.Redis.URL == "":
		return invalid("REDIS_URL is required in redis mode")
	case c.Backchannel.CleanupInterval <= 0:
		return invalid("BACKCHANNEL_CLEANUP_INTERVAL must be positive")
	case !c.RateLimit.Disabled && (c.RateLimit.ClientRPS <= 0 || c.RateLimit.PublicRPS <= 0):
		return invalid("RATE_LIMIT_CLIENT_RPS and RATE_LIMIT_PUBLIC_RPS must be positive")
	case !c.RateLimit.Disabled && (c.RateLimit.ClientBurst < 1 || c.RateLimit.PublicBurst < 1):
		return invalid("rate limit bursts must be at least 1")
	}
	return nil
}
