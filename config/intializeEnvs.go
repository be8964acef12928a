package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	godotenv "github.com/joho/godotenv"
)

const (
	DefaultTargetQuality  = 85
	DefaultStatusExchange = "image_processing"
	DefaultMetricsAddr    = ":9090"
)

// Worker holds how many consumers are started per queue name.
// Queues that are not listed get a single consumer.
var Worker = map[string]int{
	"optimize_queue": 2,
	"resize_queue":   2,
}

type Config struct {
	// TargetQuality caps the quality the optimize handler re-encodes with.
	// ParseQuality keeps it within 1-100.
	TargetQuality int
	KeepOriginal  bool

	AwsRegion      string
	AwsAccessKey   string
	AwsSecretKey   string
	S3Endpoint     string
	RabbitMqURL    string
	OptimizeQueue  string
	ResizeQueue    string
	StatusExchange string
	MetricsAddr    string
	LogLevel       string
}

// NewConfig returns a Config with the documented defaults: quality 85 and
// keep-original disabled.
func NewConfig() *Config {
	return &Config{
		TargetQuality:  DefaultTargetQuality,
		KeepOriginal:   false,
		StatusExchange: DefaultStatusExchange,
		MetricsAddr:    DefaultMetricsAddr,
		LogLevel:       "info",
	}
}

func loadDotEnv() {
	switch os.Getenv("APP_ENV") {
	case "docker":
		if err := godotenv.Overload(".env.docker"); err == nil {
			log.Println("Loaded .env.docker")
		} else {
			log.Println(".env.docker not found, using existing environment")
		}
	case "dev":
		if err := godotenv.Overload(".env.dev"); err == nil {
			log.Println("Loaded .env.dev")
		} else if err := godotenv.Overload(".env"); err == nil {
			log.Println("Loaded .env")
		} else {
			log.Println("No .env.dev or .env found, using system environment variables")
		}
	case "", "lambda":
		// Lambda functions are configured through the function environment only.
	default:
		fname := ".env." + os.Getenv("APP_ENV")
		if err := godotenv.Overload(fname); err == nil {
			log.Printf("Loaded %s", fname)
		} else if err := godotenv.Overload(".env"); err == nil {
			log.Println("Loaded .env")
		} else {
			log.Printf("No %s or .env found, using system environment variables", fname)
		}
	}
}

// InitializeEnvs builds the handler configuration from the environment.
// It never fails on missing values; callers that need more (the queue
// worker) call ValidateWorker.
func InitializeEnvs() (*Config, error) {
	loadDotEnv()

	cfg := NewConfig()
	cfg.TargetQuality = ParseQuality(os.Getenv("IMG_QUALITY"))
	cfg.KeepOriginal = ParseKeepOriginal(os.Getenv("KEEP_ORIGINAL"))

	cfg.AwsRegion = os.Getenv("AWS_REGION")
	cfg.AwsAccessKey = os.Getenv("ACCESS_KEY")
	cfg.AwsSecretKey = os.Getenv("SECRET_KEY")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")

	cfg.RabbitMqURL = os.Getenv("RABBITMQ_URL")
	cfg.OptimizeQueue = os.Getenv("OPTIMIZE_QUEUE")
	cfg.ResizeQueue = os.Getenv("RESIZE_QUEUE")
	if v := os.Getenv("STATUS_EXCHANGE"); v != "" {
		cfg.StatusExchange = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if (cfg.AwsAccessKey == "") != (cfg.AwsSecretKey == "") {
		return nil, fmt.Errorf("ACCESS_KEY and SECRET_KEY must be set together")
	}
	return cfg, nil
}

// ValidateWorker checks the settings the RabbitMQ worker cannot run without.
func (c *Config) ValidateWorker() error {
	if c.RabbitMqURL == "" {
		return fmt.Errorf("RABBITMQ_URL is missing")
	}
	if c.OptimizeQueue == "" && c.ResizeQueue == "" {
		return fmt.Errorf("OPTIMIZE_QUEUE or RESIZE_QUEUE must be set")
	}
	return nil
}

// ParseQuality reads IMG_QUALITY. Anything that does not parse as a
// non-zero number falls back to the default. Other values are clamped to
// 1-100, so "Infinity" keeps the source quality of every image.
func ParseQuality(raw string) int {
	q, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || q == 0 || math.IsNaN(q) {
		return DefaultTargetQuality
	}
	return int(math.Max(1, math.Min(100, q)))
}

// ParseKeepOriginal treats any non-empty KEEP_ORIGINAL as enabled.
func ParseKeepOriginal(raw string) bool {
	return strings.TrimSpace(raw) != ""
}
