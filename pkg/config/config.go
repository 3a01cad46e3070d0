package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/code-100-precent/echobridge/pkg/logger"
)

// Config holds the full runtime configuration for the bridge service.
// All values are sourced from environment variables so the binary can run
// unchanged across dev, staging and production.
type Config struct {
	Server       ServerConfig
	Log          logger.LogConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Bridge       BridgeConfig
	Collaborator CollaboratorConfig
}

type ServerConfig struct {
	Host string
	Port int
	Mode string // dev / release
}

type DatabaseConfig struct {
	Driver   string // sqlite / mysql / postgres
	DSN      string
	LogLevel string
}

type CacheConfig struct {
	Backend   string // memory / redis
	RedisAddr string
	RedisDB   int
	RedisPass string
	TTL       time.Duration
}

// BridgeConfig controls the realtime AI leg of a call.
type BridgeConfig struct {
	AIEndpoint        string
	APIKey            string
	Model             string
	Voice             string
	Instructions      string
	Greeting          string
	CallSampleRate    int // telephony leg, mu-law
	AISampleRate      int // realtime AI leg, PCM16
	ReconnectBase     time.Duration
	MaxReconnects     int
	ResponseTimeout   time.Duration
	AudioQueueSize    int
	RecordingDir      string
	RecordingEnabled  bool
	TranscriptEnabled bool
}

// CollaboratorConfig points at the REST services the bridge consults
// while a call is in flight.
type CollaboratorConfig struct {
	KnowledgeURL    string
	PromptURL       string
	TransferURL     string
	RequestTimeout  time.Duration
	PromptCacheTTL  time.Duration
	RetrievalTopK   int
	TransferEnabled bool
}

// GlobalConfig is populated once by Load at startup.
var GlobalConfig *Config

// Load reads configuration from the environment and stores it in GlobalConfig.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getStringOrDefault("SERVER_HOST", "0.0.0.0"),
			Port: getIntOrDefault("SERVER_PORT", 8080),
			Mode: getStringOrDefault("SERVER_MODE", "dev"),
		},
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "logs/echobridge.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 7),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		Database: DatabaseConfig{
			Driver:   getStringOrDefault("DB_DRIVER", "sqlite"),
			DSN:      getStringOrDefault("DB_DSN", "echobridge.db"),
			LogLevel: getStringOrDefault("DB_LOG_LEVEL", "warn"),
		},
		Cache: CacheConfig{
			Backend:   getStringOrDefault("CACHE_BACKEND", "memory"),
			RedisAddr: getStringOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisDB:   getIntOrDefault("REDIS_DB", 0),
			RedisPass: getStringOrDefault("REDIS_PASSWORD", ""),
			TTL:       parseDuration("CACHE_TTL", 10*time.Minute),
		},
		Bridge: BridgeConfig{
			AIEndpoint:        getStringOrDefault("AI_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
			APIKey:            getStringOrDefault("AI_API_KEY", ""),
			Model:             getStringOrDefault("AI_MODEL", "gpt-4o-realtime-preview"),
			Voice:             getStringOrDefault("AI_VOICE", "alloy"),
			Instructions:      getStringOrDefault("AI_INSTRUCTIONS", ""),
			Greeting:          getStringOrDefault("AI_GREETING", ""),
			CallSampleRate:    getIntOrDefault("CALL_SAMPLE_RATE", 8000),
			AISampleRate:      getIntOrDefault("AI_SAMPLE_RATE", 24000),
			ReconnectBase:     parseDuration("AI_RECONNECT_BASE", 2*time.Second),
			MaxReconnects:     getIntOrDefault("AI_MAX_RECONNECTS", 5),
			ResponseTimeout:   parseDuration("AI_RESPONSE_TIMEOUT", 30*time.Second),
			AudioQueueSize:    getIntOrDefault("AI_AUDIO_QUEUE_SIZE", 256),
			RecordingDir:      getStringOrDefault("RECORDING_DIR", "recordings"),
			RecordingEnabled:  getBoolOrDefault("RECORDING_ENABLED", false),
			TranscriptEnabled: getBoolOrDefault("TRANSCRIPT_ENABLED", true),
		},
		Collaborator: CollaboratorConfig{
			KnowledgeURL:    getStringOrDefault("KNOWLEDGE_SERVICE_URL", ""),
			PromptURL:       getStringOrDefault("PROMPT_SERVICE_URL", ""),
			TransferURL:     getStringOrDefault("TRANSFER_SERVICE_URL", ""),
			RequestTimeout:  parseDuration("COLLAB_TIMEOUT", 5*time.Second),
			PromptCacheTTL:  parseDuration("PROMPT_CACHE_TTL", 5*time.Minute),
			RetrievalTopK:   getIntOrDefault("RETRIEVAL_TOP_K", 5),
			TransferEnabled: getBoolOrDefault("TRANSFER_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = cfg
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a call.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}
	if c.Bridge.CallSampleRate <= 0 || c.Bridge.AISampleRate <= 0 {
		return fmt.Errorf("sample rates must be positive")
	}
	if c.Bridge.MaxReconnects < 0 {
		return fmt.Errorf("max reconnects must not be negative")
	}
	return nil
}

func getStringOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
