package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	NATSURL     string
	NATSSubject string

	PostgresMaxOpenConns    int
	PostgresMaxIdleConns    int
	PostgresConnMaxLifetime time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthJWTSecret      string
	MembershipCacheTTL time.Duration
	RateLimitRPS       float64
	RateLimitBurst     int
	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For
	// header is believed. Empty means the socket peer is the client.
	TrustedProxies []string

	EnableOutboxRelay  bool
	EnableVotingCloser bool
	EnableNATS         bool
	EnableRedisCache   bool

	Governance GovernanceConfig
}

// GovernanceConfig holds the tunables that may come from the YAML file.
type GovernanceConfig struct {
	DefaultMinimumApproval int           `yaml:"default_minimum_approval"`
	ScoreWeights           ScoreWeights  `yaml:"score_weights"`
	RelayBatchSize         int           `yaml:"relay_batch_size"`
	CloserBatchSize        int           `yaml:"closer_batch_size"`
	PollInterval           time.Duration `yaml:"poll_interval"`
	EventDedupTTL          time.Duration `yaml:"event_dedup_ttl"`
}

type ScoreWeights struct {
	Technical float64 `yaml:"technical"`
	Financial float64 `yaml:"financial"`
	Timeline  float64 `yaml:"timeline"`
}

func (w ScoreWeights) Sum() float64 {
	return w.Technical + w.Financial + w.Timeline
}

type fileConfig struct {
	Governance GovernanceConfig `yaml:"governance"`
}

func DefaultGovernance() GovernanceConfig {
	return GovernanceConfig{
		DefaultMinimumApproval: 75,
		ScoreWeights: ScoreWeights{
			Technical: 0.4,
			Financial: 0.4,
			Timeline:  0.2,
		},
		RelayBatchSize:  100,
		CloserBatchSize: 50,
		PollInterval:    5 * time.Second,
		EventDedupTTL:   7 * 24 * time.Hour,
	}
}

// Load reads the environment and, when CONFIG_FILE is set, overlays the
// governance section of that YAML file.
func Load() (Config, error) {
	return LoadWithFile(os.Getenv("CONFIG_FILE"))
}

func LoadWithFile(path string) (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "societyhub"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	natsURL := strings.TrimSpace(os.Getenv("NATS_URL"))
	if natsURL == "" {
		natsURL = "nats://127.0.0.1:4222"
	}
	subject := strings.TrimSpace(os.Getenv("NATS_SUBJECT_PREFIX"))
	if subject == "" {
		subject = "societyhub.governance"
	}

	redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	cfg := Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		NATSURL:     natsURL,
		NATSSubject: subject,

		PostgresMaxOpenConns:    envInt("POSTGRES_MAX_OPEN_CONNS", 20),
		PostgresMaxIdleConns:    envInt("POSTGRES_MAX_IDLE_CONNS", 5),
		PostgresConnMaxLifetime: envDuration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),

		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		AuthJWTSecret:      os.Getenv("AUTH_JWT_SECRET"),
		MembershipCacheTTL: envDuration("MEMBERSHIP_CACHE_TTL", time.Minute),
		RateLimitRPS:       envFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     envInt("RATE_LIMIT_BURST", 20),
		TrustedProxies:     envList("TRUSTED_PROXIES"),

		EnableOutboxRelay:  envBool("ENABLE_OUTBOX_RELAY", true),
		EnableVotingCloser: envBool("ENABLE_VOTING_CLOSER", true),
		EnableNATS:         envBool("ENABLE_NATS", false),
		EnableRedisCache:   envBool("ENABLE_REDIS_CACHE", false),

		Governance: DefaultGovernance(),
	}

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		file := fileConfig{Governance: cfg.Governance}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		cfg.Governance = file.Governance
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	g := c.Governance
	if g.DefaultMinimumApproval < 50 || g.DefaultMinimumApproval > 100 {
		return fmt.Errorf("governance.default_minimum_approval must be between 50 and 100")
	}
	w := g.ScoreWeights
	if w.Technical < 0 || w.Financial < 0 || w.Timeline < 0 {
		return fmt.Errorf("governance.score_weights must not be negative")
	}
	if math.Abs(w.Sum()-1) > 0.001 {
		return fmt.Errorf("governance.score_weights must sum to 1, got %.3f", w.Sum())
	}
	if g.RelayBatchSize <= 0 || g.CloserBatchSize <= 0 {
		return fmt.Errorf("governance batch sizes must be positive")
	}
	if g.PollInterval <= 0 {
		return fmt.Errorf("governance.poll_interval must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envList(name string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(name), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envInt(name string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(name)), 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(strings.TrimSpace(os.Getenv(name)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
