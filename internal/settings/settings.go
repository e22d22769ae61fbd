// Package settings turns env-variables (and an optional .env file) into typed app settings
package settings

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/wb-go/wbf/config"
)

type Settings struct {
	Converter ConverterSettings
	LogLevel  string
	Storage   StorageSettings
	Kafka     KafkaSettings
	DB        DBSettings
	HTTP      HTTPSettings
	Webhook   WebhookSettings
	Mail      MailSettings
}

type ConverterSettings struct {
	InputDir     string
	OutputDir    string
	Policy       model.Policy
	Workers      int
	Quality      int
	ReportFormat string
}

const (
	BackendLocal = "local"
	BackendMinio = "minio"
)

type StorageSettings struct {
	Backend  string
	Bucket   string
	Endpoint string
	User     string
	Pass     string
	UseSSL   bool
}

type KafkaSettings struct {
	Broker  string
	Topic   string
	GroupID string
}

type DBSettings struct {
	DSN string
}

type HTTPSettings struct {
	Port    string
	GinMode string
}

type WebhookSettings struct {
	URL      string
	Secret   string
	Attempts int
	Delay    time.Duration
}

// SMTP transport security: starttls upgrades a plain connection when the server offers it,
// implicit talks TLS from the first byte (port 465).
const (
	MailTLSStartTLS = "starttls"
	MailTLSImplicit = "implicit"
)

type MailSettings struct {
	Host    string
	Port    int
	User    string
	Pass    string
	From    string
	To      []string
	TLS     string
	Timeout time.Duration
}

// Bootstrap prepares the wbf config: env-variables always, envFile only if it exists.
func Bootstrap(envFile string) (*config.Config, error) {
	appConfig := config.New()
	appConfig.EnableEnv("")

	if envFile == "" {
		return appConfig, nil
	}
	if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		return appConfig, nil
	}
	if err := appConfig.LoadEnvFiles(envFile); err != nil {
		return nil, fmt.Errorf("failed to load env file %q: %w", envFile, err)
	}
	return appConfig, nil
}

func Load(cfg *config.Config) Settings {
	return Settings{
		Converter: ConverterSettings{
			InputDir:     str(cfg, "INPUT_DIR", "images"),
			OutputDir:    str(cfg, "OUTPUT_DIR", "icons"),
			Policy:       model.Policy(strings.ToLower(str(cfg, "ERROR_POLICY", string(model.PolicySkip)))),
			Workers:      intOr(cfg, "WORKERS", 1),
			Quality:      intOr(cfg, "JPEG_QUALITY", model.DefaultQuality),
			ReportFormat: strings.ToLower(str(cfg, "REPORT_FORMAT", "json")),
		},
		LogLevel: str(cfg, "LOG_LEVEL", "info"),
		Storage: StorageSettings{
			Backend:  strings.ToLower(str(cfg, "STORAGE_BACKEND", BackendLocal)),
			Bucket:   str(cfg, "BUCKET_NAME", "icons"),
			Endpoint: str(cfg, "MINIO_ENDPOINT", "localhost:9000"),
			User:     str(cfg, "MINIO_USER", ""),
			Pass:     str(cfg, "MINIO_PASS", ""),
			UseSSL:   boolOr(cfg, "MINIO_USE_SSL", false),
		},
		Kafka: KafkaSettings{
			Broker:  str(cfg, "KAFKA_BROKER", "localhost:9092"),
			Topic:   str(cfg, "KAFKA_TOPIC", "icon-batches"),
			GroupID: str(cfg, "KAFKA_GROUPID", "iconconv-worker"),
		},
		DB: DBSettings{
			DSN: str(cfg, "POSTGRES_DSN", ""),
		},
		HTTP: HTTPSettings{
			Port:    str(cfg, "APP_PORT", "8080"),
			GinMode: str(cfg, "GIN_MODE", "release"),
		},
		Webhook: WebhookSettings{
			URL:      str(cfg, "WEBHOOK_URL", ""),
			Secret:   str(cfg, "WEBHOOK_SECRET", ""),
			Attempts: intOr(cfg, "WEBHOOK_ATTEMPTS", 3),
			Delay:    durationOr(cfg, "WEBHOOK_DELAY", time.Second),
		},
		Mail: MailSettings{
			Host:    str(cfg, "SMTP_HOST", ""),
			Port:    intOr(cfg, "SMTP_PORT", 25),
			User:    str(cfg, "SMTP_USER", ""),
			Pass:    str(cfg, "SMTP_PASS", ""),
			From:    str(cfg, "MAIL_FROM", "automation@example.com"),
			To:      list(cfg, "MAIL_TO"),
			TLS:     strings.ToLower(str(cfg, "SMTP_TLS", MailTLSStartTLS)),
			Timeout: durationOr(cfg, "SMTP_TIMEOUT", 30*time.Second),
		},
	}
}

// Validate checks only what the converter itself needs.
func (c ConverterSettings) Validate() error {
	if strings.TrimSpace(c.InputDir) == "" {
		return model.ErrEmptyInputDir
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return model.ErrEmptyOutputDir
	}
	if !model.PolicyMap[c.Policy] {
		return fmt.Errorf("%w: %q", model.ErrIncorrectPolicy, c.Policy)
	}
	switch c.ReportFormat {
	case "json", "yaml", "none":
	default:
		return fmt.Errorf("%w: %q", model.ErrUnsupportedReportFormat, c.ReportFormat)
	}
	return nil
}

func str(cfg *config.Config, key, fallback string) string {
	value := strings.TrimSpace(cfg.GetString(key))
	if value == "" {
		return fallback
	}
	return value
}

func intOr(cfg *config.Config, key string, fallback int) int {
	value := str(cfg, key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func boolOr(cfg *config.Config, key string, fallback bool) bool {
	value := str(cfg, key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func durationOr(cfg *config.Config, key string, fallback time.Duration) time.Duration {
	value := str(cfg, key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func list(cfg *config.Config, key string) []string {
	var out []string
	for _, v := range strings.Split(str(cfg, key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
