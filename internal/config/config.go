package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	// Business scheduling policy
	BusinessTimezone     string
	OpeningHours         map[time.Weekday]string // e.g. Monday: "10-18"; absent weekday means closed
	SessionIdleTTL       time.Duration
	DefaultDurationHours int
	MaxHeadcount         int

	// Reminder sweeper
	SweepInterval  time.Duration
	ReminderWindow time.Duration

	// Approval worker
	ApprovalRetryMaxAttempts int
	ApprovalRetryBaseDelay   time.Duration
	WorkerCount              int
	UseMemoryQueue           bool

	// AWS / storage
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	SessionsTable       string
	ReservationsTable   string
	ApprovalQueueURL    string

	// Instagram / Meta Graph API
	InstagramToken       string
	InstagramAppSecret   string
	InstagramVerifyToken string

	// Telegram owner channel
	TelegramBotToken      string
	OwnerTelegramChatID   string
	TelegramWebhookSecret string

	// Google Calendar
	GoogleCredentialsBase64 string
	GoogleCalendarID        string

	// FAQ responder
	GeminiAPIKey   string
	GeminiModelID  string
	FAQTimeout     time.Duration
	RedisAddr      string
	RedisPassword  string
	HistoryEnabled bool

	AdminToken string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		BusinessTimezone:     getEnv("BUSINESS_TIMEZONE", "Europe/Warsaw"),
		OpeningHours:         parseOpeningHours(getEnv("OPENING_HOURS", "Mon=10-18,Tue=10-18,Wed=10-18,Thu=10-18,Fri=10-18")),
		SessionIdleTTL:       getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),
		DefaultDurationHours: getEnvAsInt("DEFAULT_DURATION_HOURS", 2),
		MaxHeadcount:         getEnvAsInt("MAX_HEADCOUNT", 50),

		SweepInterval:  getEnvAsDuration("REMINDER_SWEEP_INTERVAL", time.Hour),
		ReminderWindow: getEnvAsDuration("REMINDER_WINDOW", 24*time.Hour),

		ApprovalRetryMaxAttempts: getEnvAsInt("APPROVAL_RETRY_MAX_ATTEMPTS", 3),
		ApprovalRetryBaseDelay:   getEnvAsDuration("APPROVAL_RETRY_BASE_DELAY", 500*time.Millisecond),
		WorkerCount:              getEnvAsInt("WORKER_COUNT", 1),
		UseMemoryQueue:           getEnvAsBool("USE_MEMORY_QUEUE", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		SessionsTable:       getEnv("SESSIONS_TABLE", "booking_sessions"),
		ReservationsTable:   getEnv("RESERVATIONS_TABLE", "reservations"),
		ApprovalQueueURL:    getEnv("APPROVAL_QUEUE_URL", ""),

		InstagramToken:       getEnv("INSTAGRAM_TOKEN", ""),
		InstagramAppSecret:   getEnv("INSTAGRAM_APP_SECRET", ""),
		InstagramVerifyToken: getEnv("VERIFY_TOKEN", ""),

		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		OwnerTelegramChatID:   getEnv("OWNER_TELEGRAM_CHAT_ID", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),

		GoogleCredentialsBase64: getEnv("GOOGLE_CREDENTIALS_BASE64", ""),
		GoogleCalendarID:        getEnv("GOOGLE_CALENDAR_ID", "primary"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		FAQTimeout:     getEnvAsDuration("FAQ_TIMEOUT", 10*time.Second),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		HistoryEnabled: getEnvAsBool("HISTORY_ENABLED", true),

		AdminToken: getEnv("ADMIN_TOKEN", ""),
	}
}

var weekdayAbbrevs = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// parseOpeningHours parses "Mon=10-18,Tue=10-18,..." into per-weekday hour
// ranges. Malformed entries are skipped; an absent weekday means closed.
func parseOpeningHours(raw string) map[time.Weekday]string {
	hours := make(map[time.Weekday]string)
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		day, ok := weekdayAbbrevs[strings.ToLower(strings.TrimSpace(kv[0]))]
		if !ok {
			continue
		}
		window := strings.TrimSpace(kv[1])
		if window == "" || strings.EqualFold(window, "closed") {
			continue
		}
		hours[day] = window
	}
	return hours
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
