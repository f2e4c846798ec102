// Load envs from .env
// Load YAML config
// Validate config
// Provide default values

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv        string `yaml:"app_env" env:"APP_ENV"`
	Port          string `yaml:"port" env:"PORT"`
	PublicBaseURL string `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
	DatabaseURL   string `yaml:"database_url" env:"DATABASE_URL"`

	//Telephony (Twilio)
	TwilioAccountSID  string `yaml:"twilio_account_sid" env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `yaml:"twilio_auth_token" env:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber string `yaml:"twilio_phone_number" env:"TWILIO_PHONE_NUMBER"`

	//Language generation (OpenAI-compatible)
	OpenAIAPIKey string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIModel  string `yaml:"openai_model"`

	//Speech synthesis (ElevenLabs)
	ElevenAPIKey  string `yaml:"eleven_api_key" env:"ELEVEN_API_KEY"`
	ElevenVoiceID string `yaml:"eleven_voice_id" env:"ELEVEN_VOICE_ID"`
	AudioCacheDir string `yaml:"audio_cache_dir"`

	//Ops alerts
	TelegramToken  string `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `yaml:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`

	//Conversation tuning
	AssistantName     string  `yaml:"assistant_name"`
	CompanyName       string  `yaml:"company_name"`
	HistoryWindow     int     `yaml:"history_window"`
	RoleLockThreshold float64 `yaml:"role_lock_threshold"`

	//Dispatcher tuning. The interval arrives as duration text ("30s", "2m")
	//from YAML or env and is parsed into DispatcherInterval during load.
	DispatcherInterval    time.Duration `yaml:"-"`
	DispatcherIntervalRaw string        `yaml:"dispatcher_interval" env:"DISPATCHER_INTERVAL"`
	DispatcherLimit       int           `yaml:"dispatcher_limit"`
	MaxCallAttempts       int           `yaml:"max_call_attempts"`
	DestinationPhone      string        `yaml:"destination_phone" env:"DESTINATION_PHONE"`

	//Industry enum and synonym table (closed set; unmatched values are dropped)
	Industries       []string          `yaml:"industries"`
	IndustrySynonyms map[string]string `yaml:"industry_synonyms"`
}

func Load() *Config {
	return LoadFile("configs/config.yaml")
}

func LoadFile(path string) *Config {
	_ = godotenv.Load()

	//Load yaml config
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: Could not read %s: %v", path, err)
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", path, err)
		}
	}

	//Override with env vars
	for _, ov := range []struct {
		env string
		dst *string
	}{
		{"APP_ENV", &cfg.AppEnv},
		{"PORT", &cfg.Port},
		{"PUBLIC_BASE_URL", &cfg.PublicBaseURL},
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"TWILIO_ACCOUNT_SID", &cfg.TwilioAccountSID},
		{"TWILIO_AUTH_TOKEN", &cfg.TwilioAuthToken},
		{"TWILIO_PHONE_NUMBER", &cfg.TwilioPhoneNumber},
		{"OPENAI_API_KEY", &cfg.OpenAIAPIKey},
		{"ELEVEN_API_KEY", &cfg.ElevenAPIKey},
		{"ELEVEN_VOICE_ID", &cfg.ElevenVoiceID},
		{"TELEGRAM_BOT_TOKEN", &cfg.TelegramToken},
		{"DESTINATION_PHONE", &cfg.DestinationPhone},
		{"DISPATCHER_INTERVAL", &cfg.DispatcherIntervalRaw},
	} {
		if v := os.Getenv(ov.env); v != "" {
			*ov.dst = v
		}
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			log.Fatalf("Invalid TELEGRAM_CHAT_ID: %v", err)
		}
		cfg.TelegramChatID = id
	}

	//Set default values if not set
	if cfg.AppEnv == "" {
		cfg.AppEnv = "prod"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.AudioCacheDir == "" {
		cfg.AudioCacheDir = "static/audio"
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = "Ava"
	}
	if cfg.CompanyName == "" {
		cfg.CompanyName = "HireVox"
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 20
	}
	if cfg.RoleLockThreshold <= 0 {
		cfg.RoleLockThreshold = 0.8
	}
	if cfg.DispatcherIntervalRaw != "" {
		interval, err := time.ParseDuration(cfg.DispatcherIntervalRaw)
		if err != nil {
			log.Fatalf("Invalid dispatcher_interval %q: %v", cfg.DispatcherIntervalRaw, err)
		}
		cfg.DispatcherInterval = interval
	}
	if cfg.DispatcherInterval <= 0 {
		cfg.DispatcherInterval = 30 * time.Second
	}
	if cfg.DispatcherLimit <= 0 {
		cfg.DispatcherLimit = 10
	}
	if cfg.MaxCallAttempts <= 0 {
		cfg.MaxCallAttempts = 3
	}
	if len(cfg.Industries) == 0 {
		cfg.Industries = DefaultIndustries()
	}
	if len(cfg.IndustrySynonyms) == 0 {
		cfg.IndustrySynonyms = DefaultIndustrySynonyms()
	}

	//Validate required fields
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.PublicBaseURL == "" {
		log.Fatal("PUBLIC_BASE_URL is required")
	}
	if cfg.IsProd() && cfg.TwilioAuthToken == "" {
		log.Fatal("TWILIO_AUTH_TOKEN is required in prod (webhook signature verification)")
	}

	return cfg
}

// IsProd reports whether the production flag is set. The webhook signature
// bypass must never be reachable when this returns true.
func (c *Config) IsProd() bool {
	return c.AppEnv != "dev" && c.AppEnv != "test"
}

// DefaultIndustries is the built-in closed enum used when the YAML config does
// not provide one.
func DefaultIndustries() []string {
	return []string{"Fintech", "Insurance", "Healthtech", "SaaS", "Retail", "Energy", "Manufacturing"}
}

func DefaultIndustrySynonyms() map[string]string {
	return map[string]string{
		"finance":               "Fintech",
		"financial services":    "Fintech",
		"banking":               "Fintech",
		"health":                "Healthtech",
		"healthcare":            "Healthtech",
		"medical":               "Healthtech",
		"software":              "SaaS",
		"software as a service": "SaaS",
		"cloud":                 "SaaS",
		"insurtech":             "Insurance",
		"ecommerce":             "Retail",
		"e-commerce":            "Retail",
		"utilities":             "Energy",
		"industrial":            "Manufacturing",
	}
}
