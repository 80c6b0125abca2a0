package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultOpenRouterModels is the free-tier model list tried in order
var DefaultOpenRouterModels = []string{
	"liquid/lfm-2.5-1.2b-instruct:free",
	"arcee-ai/trinity-large-preview:free",
	"cognitivecomputations/dolphin-mistral-24b-venice-edition:free",
	"nvidia/nemotron-nano-9b-v2:free",
}

// Transports for the WhatsApp session
const (
	TransportGateway = "gateway"
	TransportTwilio  = "twilio"
)

// Config holds every runtime setting read from the environment
type Config struct {
	Port       string
	BridgePort string
	AppURL     string
	BridgeURL  string
	BrandName  string
	Version    string

	// Environment is "production", "development" or empty
	Environment string

	AIReplySecret   string
	SchedulerSecret string
	AdminSecret     string

	OpenRouterAPIKey  string
	OpenRouterModels  []string
	OpenRouterBaseURL string
	GeminiAPIKey      string
	GeminiModel       string
	ProviderTimeout   time.Duration
	TopicPolicy       string

	Transport         string
	GatewayURL        string
	GatewayToken      string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFrom        string
	WebhookValidation bool
	SendTimeout       time.Duration

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	UseMemoryStore bool
	DB             DBConfig

	Location          *time.Location
	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	ReplyRatePerMin   int
}

// DBConfig holds PostgreSQL connection settings
type DBConfig struct {
	User                   string
	Pass                   string
	Name                   string
	Host                   string
	Port                   string
	InstanceConnectionName string
}

// HourWindow is the width of the hour-before reminder window. The scheduler
// must poll at least this often or appointments can fall between two scans.
const HourWindow = 5 * time.Minute

// LoadEnvFiles loads .env files for local development. Variables already set
// in the process environment are never overridden.
func LoadEnvFiles() {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("environments/.env.development"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}
}

// Load builds a Config from the environment
func Load() (*Config, error) {
	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		BridgePort: getEnv("WHATSAPP_BRIDGE_PORT", "3001"),
		AppURL:     strings.TrimRight(getEnv("APP_URL", getEnv("NEXT_PUBLIC_APP_URL", "http://localhost:3000")), "/"),
		BridgeURL:  strings.TrimRight(getEnv("WHATSAPP_BRIDGE_URL", "http://localhost:3001"), "/"),
		BrandName:  getEnv("BRAND_NAME", "AppointLab"),
		Version:    getEnv("APP_VERSION", "1.0.0"),

		Environment: os.Getenv("ENVIRONMENT"),

		AIReplySecret:   os.Getenv("AI_WHATSAPP_REPLY_SECRET"),
		SchedulerSecret: os.Getenv("SCHEDULER_SECRET"),
		AdminSecret:     os.Getenv("ADMIN_API_SECRET"),

		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModels:  splitList(os.Getenv("OPENROUTER_MODELS")),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		TopicPolicy:       strings.ToLower(getEnv("TOPIC_POLICY", "permissive")),

		Transport:        strings.ToLower(getEnv("WHATSAPP_TRANSPORT", TransportGateway)),
		GatewayURL:       getEnv("WHATSAPP_GATEWAY_URL", "ws://localhost:3002/session"),
		GatewayToken:     os.Getenv("WHATSAPP_GATEWAY_TOKEN"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_WHATSAPP_FROM"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: getEnv("SMTP_FROM", os.Getenv("SMTP_USER")),

		UseMemoryStore: os.Getenv("USE_MEMORY_STORE") == "true",
		DB: DBConfig{
			User:                   getEnv("DB_USER", "postgres"),
			Pass:                   os.Getenv("DB_PASS"),
			Name:                   getEnv("DB_NAME", "appointlab"),
			Host:                   getEnv("DB_HOST", "localhost"),
			Port:                   getEnv("DB_PORT", "5432"),
			InstanceConnectionName: os.Getenv("INSTANCE_CONNECTION_NAME"),
		},

		SchedulerEnabled: getEnv("SCHEDULER_ENABLED", "true") != "false",
	}

	if len(cfg.OpenRouterModels) == 0 {
		cfg.OpenRouterModels = append([]string(nil), DefaultOpenRouterModels...)
	}

	// Webhook validation is skipped only outside production, like before
	cfg.WebhookValidation = !(os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" && cfg.Environment != "production")

	var err error
	if cfg.ProviderTimeout, err = getDuration("AI_PROVIDER_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}
	if cfg.SendTimeout, err = getDuration("WHATSAPP_SEND_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SchedulerInterval, err = getDuration("SCHEDULER_INTERVAL", HourWindow); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.ReplyRatePerMin, err = getInt("REPLY_RATE_PER_MINUTE", 6); err != nil {
		return nil, err
	}
	if cfg.Location, err = time.LoadLocation(getEnv("APP_TIMEZONE", "UTC")); err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would silently break reminders or transport
func (c *Config) Validate() error {
	if c.SchedulerInterval <= 0 || c.SchedulerInterval > HourWindow {
		return fmt.Errorf("SCHEDULER_INTERVAL must be between 0 and %s, got %s", HourWindow, c.SchedulerInterval)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("AI_PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout)
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("WHATSAPP_SEND_TIMEOUT must be positive, got %s", c.SendTimeout)
	}
	switch c.Transport {
	case TransportGateway, TransportTwilio:
	default:
		return fmt.Errorf("WHATSAPP_TRANSPORT must be %q or %q, got %q", TransportGateway, TransportTwilio, c.Transport)
	}
	switch c.TopicPolicy {
	case "permissive", "strict":
	default:
		return fmt.Errorf("TOPIC_POLICY must be permissive or strict, got %q", c.TopicPolicy)
	}
	return nil
}

// SMTPEnabled reports whether email goes through a real SMTP server
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GenerateBudget is long enough for every configured model to time out once
// before the template fallback is used.
func (c *Config) GenerateBudget() time.Duration {
	attempts := len(c.OpenRouterModels) + 1
	return time.Duration(attempts)*c.ProviderTimeout + 5*time.Second
}
