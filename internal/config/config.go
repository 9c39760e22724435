package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ConversationStoreMemory = "memory"
	ConversationStoreRedis  = "redis"
)

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string

	LogLevel  string
	LogFormat string
	LogFile   string

	// BotToken: токен Telegram-бота. Пустой: уведомления только пишутся в лог, поллер не запускается.
	BotToken    string
	PollTimeout time.Duration

	// AdminIDs: статический список сотрудников поддержки.
	AdminIDs      []int64
	SupportChatID int64

	// InteractionsToken включает POST /api/v1/interactions (заголовок X-Api-Token).
	InteractionsToken string

	// StrictValidation включает проверки полей заявки: ФИО из двух слов и описание от 10 символов.
	StrictValidation bool

	ConversationStore string
	RedisURL          string

	KafkaBrokers     []string
	KafkaTopicTicket string

	DB struct {
		Driver     string
		Host       string
		Port       string
		User       string
		Password   string
		Database   string
		SSLMode    string
		SQLitePath string
	}

	admins map[int64]struct{}
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:           getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:          firstEnv("APP_PORT", "HTTP_PORT", "8097"),
		AppEnv:            getEnv("APP_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		LogFile:           getEnv("LOG_FILE", ""),
		BotToken:          getEnv("BOT_TOKEN", ""),
		InteractionsToken: getEnv("INTERACTIONS_TOKEN", ""),
		ConversationStore: strings.ToLower(getEnv("CONVERSATION_STORE", ConversationStoreMemory)),
		RedisURL:          getEnv("REDIS_URL", ""),
		KafkaBrokers:      splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicTicket:  getEnv("KAFKA_TOPIC_TICKET", "helpdesk.tickets"),
	}

	pollSec, err := strconv.Atoi(getEnv("BOT_POLL_TIMEOUT", "60"))
	if err != nil || pollSec <= 0 {
		return nil, fmt.Errorf("config: BOT_POLL_TIMEOUT must be a positive integer")
	}
	cfg.PollTimeout = time.Duration(pollSec) * time.Second

	strict, err := strconv.ParseBool(getEnv("STRICT_VALIDATION", "true"))
	if err != nil {
		return nil, fmt.Errorf("config: STRICT_VALIDATION: %w", err)
	}
	cfg.StrictValidation = strict

	cfg.AdminIDs, err = parseIDs(getEnv("ADMIN_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("config: ADMIN_IDS: %w", err)
	}
	if v := getEnv("SUPPORT_CHAT_ID", "0"); v != "" {
		cfg.SupportChatID, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: SUPPORT_CHAT_ID: %w", err)
		}
	}

	cfg.DB.Driver = strings.ToLower(getEnv("DB_DRIVER", DriverPostgres))
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "helpdesk")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.DB.SQLitePath = getEnv("DB_SQLITE_PATH", "data/helpdesk.db")
	cfg.SetAdmins(cfg.AdminIDs)
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required")
		}
		if c.AppEnv == "production" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	case DriverSQLite:
		if c.DB.SQLitePath == "" {
			return errors.New("config: DB_SQLITE_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DB.Driver)
	}
	switch c.ConversationStore {
	case ConversationStoreMemory:
	case ConversationStoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL is required when CONVERSATION_STORE=redis")
		}
	default:
		return fmt.Errorf("config: unknown CONVERSATION_STORE %q", c.ConversationStore)
	}
	if c.BotToken != "" && c.SupportChatID == 0 {
		return errors.New("config: SUPPORT_CHAT_ID is required when BOT_TOKEN is set")
	}
	return nil
}

// SetAdmins replaces the admin predicate's id set.
func (c *Config) SetAdmins(ids []int64) {
	c.AdminIDs = ids
	c.admins = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		c.admins[id] = struct{}{}
	}
}

// IsAdmin: предикат доступа к командам сотрудников.
func (c *Config) IsAdmin(userID int64) bool {
	_, ok := c.admins[userID]
	return ok
}

func (c *Config) DSN() string {
	if c.DB.Driver == DriverSQLite {
		return "file:" + c.DB.SQLitePath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func parseIDs(s string) ([]int64, error) {
	var out []int64
	for _, part := range splitCSV(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}

// splitCSV разбивает строку "a,b,c" на непустые элементы.
func splitCSV(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
