package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AIAPIKey        string  `validate:"required"`
	GenModel        string  `validate:"required"`
	Temperature     float64 `validate:"gte=0,lte=2"`
	MaxOutputTokens int     `validate:"gte=1"`
	ModelTokenLimit int     `validate:"gte=1000"`

	OCRAPIKey   string
	OCRAPIURL   string `validate:"omitempty,url"`
	OCRLanguage string `validate:"required"`

	MaxPDFSizeMB             int `validate:"gte=1,lte=100"`
	SessionTimeoutMinutes    int `validate:"gte=1,lte=1440"`
	SweepIntervalSeconds     int `validate:"gte=1"`
	CompletionTimeoutSeconds int `validate:"gte=1"`
	ExtractionTimeoutSeconds int `validate:"gte=1"`
	MaxConversationLength    int `validate:"gte=2"`

	Port           string   `validate:"required,numeric"`
	AllowedOrigins []string `validate:"min=1"`
	WebDir         string
	LogFilePath    string `validate:"required"`
	AppEnv         string `validate:"oneof=development production test"`

	OTelEnabled  bool
	OTelEndpoint string
}

// LoadConfig loads the environment (and .env when present) and validates it.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AIAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GenModel:        getEnv("GEN_MODEL", "gemini-2.0-flash"),
		Temperature:     getEnvFloat("TEMPERATURE", 0.7),
		MaxOutputTokens: getEnvInt("MAX_OUTPUT_TOKENS", 8192),
		ModelTokenLimit: getEnvInt("MODEL_TOKEN_LIMIT", 1_000_000),

		OCRAPIKey:   getEnv("OCR_API_KEY", ""),
		OCRAPIURL:   getEnv("OCR_API_URL", ""),
		OCRLanguage: getEnv("OCR_LANGUAGE", "spa"),

		MaxPDFSizeMB:             getEnvInt("MAX_PDF_SIZE_MB", 10),
		SessionTimeoutMinutes:    getEnvInt("SESSION_TIMEOUT_MINUTES", 30),
		SweepIntervalSeconds:     getEnvInt("SWEEP_INTERVAL_SECONDS", 60),
		CompletionTimeoutSeconds: getEnvInt("COMPLETION_TIMEOUT_SECONDS", 120),
		ExtractionTimeoutSeconds: getEnvInt("EXTRACTION_TIMEOUT_SECONDS", 90),
		MaxConversationLength:    getEnvInt("MAX_CONVERSATION_LENGTH", 20),

		Port:           getEnv("PORT", "8000"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		WebDir:         getEnv("WEB_DIR", "./web"),
		LogFilePath:    getEnv("LOG_FILE_PATH", "pdfchat.log"),
		AppEnv:         getEnv("APP_ENV", "development"),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) MaxPDFBytes() int {
	return c.MaxPDFSizeMB << 20
}

func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) CompletionTimeout() time.Duration {
	return time.Duration(c.CompletionTimeoutSeconds) * time.Second
}

func (c *Config) ExtractionTimeout() time.Duration {
	return time.Duration(c.ExtractionTimeoutSeconds) * time.Second
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a number, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
