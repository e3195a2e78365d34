package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Detector DetectorConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string
	AllowOrigins []string
}

// DetectorConfig holds the region-detector service configuration.
type DetectorConfig struct {
	BaseURL   string
	Model     string
	Threshold float64
	Timeout   time.Duration
}

// OCRConfig holds OCR engine configuration.
type OCRConfig struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Language  string // default "eng"
	PSM       int    // page segmentation mode, default 6
	OEM       int    // engine mode, default 3
	DPI       int    // rasterization DPI for PDF pages, default 300
	Timeout   time.Duration
}

// LLMConfig holds language-model configuration.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// PipelineConfig holds pipeline behavior flags.
type PipelineConfig struct {
	SupportsPDF    bool
	SortRegions    bool   // spatial (ymin,xmin) ordering instead of raw detector order
	DebugArtifacts bool   // write detection-overlay PNGs
	ArtifactDir    string // default "./tmp"
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			Addr:         getEnv("HTTP_ADDR", ":9090"),
			AllowOrigins: []string{getEnv("CORS_ALLOW_ORIGIN", "*")},
		},
		Detector: DetectorConfig{
			BaseURL:   getEnv("DETECTOR_URL", "http://localhost:8501"),
			Model:     getEnv("DETECTOR_MODEL", "invoice-regions"),
			Threshold: getEnvAsFloat64("DETECTOR_THRESHOLD", 0.5),
			Timeout:   getEnvAsDuration("DETECTOR_TIMEOUT", 30*time.Second),
		},
		OCR: OCRConfig{
			Tesseract: getEnv("TESSERACT_BIN", "tesseract"),
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Language:  getEnv("OCR_LANG", "eng"),
			PSM:       getEnvAsInt("OCR_PSM", 6),
			OEM:       getEnvAsInt("OCR_OEM", 3),
			DPI:       getEnvAsInt("OCR_DPI", 300),
			Timeout:   getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			BaseURL: getEnv("OLLAMA_URL", "http://localhost:11434"),
			Model:   getEnv("OLLAMA_MODEL", "gemma2:2b"),
			Timeout: getEnvAsDuration("OLLAMA_TIMEOUT", 120*time.Second),
		},
		Pipeline: PipelineConfig{
			SupportsPDF:    getEnvAsBool("PIPELINE_SUPPORTS_PDF", true),
			SortRegions:    getEnvAsBool("PIPELINE_SORT_REGIONS", false),
			DebugArtifacts: getEnvAsBool("PIPELINE_DEBUG_ARTIFACTS", false),
			ArtifactDir:    getEnv("ARTIFACT_DIR", "./tmp"),
		},
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInput)
	}
	if c.Detector.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "DETECTOR_URL is required", ErrInput)
	}
	if c.LLM.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "OLLAMA_URL is required", ErrInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
