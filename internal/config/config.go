package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIBaseURL      = "https://datamall2.mytransport.sg/ltaodataservice"
	defaultRefreshWindow   = 30
	defaultThrottleMS      = 15000
	defaultHTTPTimeoutSecs = 10
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// MetricsAddr is the listen address for the Prometheus endpoint.
	// Empty disables the metrics server.
	MetricsAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	APIBaseURL  string
	AccountKey  string
	HTTPTimeout time.Duration

	// RefreshWindow is how long the cached bus-stop catalog stays fresh.
	RefreshWindow time.Duration

	// ThrottleInterval is the minimum spacing between arrival polls for a
	// stop. Smaller requested watch intervals are clamped to it.
	ThrottleInterval time.Duration

	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string
}

func LoadFromEnv() (Config, error) {
	// Load .env into the environment; a missing file is not an error.
	_ = godotenv.Load()

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	driver := strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if driver == "" {
		driver = "sqlite3"
	}
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if path == "" {
		path = "data/bus-assistant.db"
	}

	maxOpenConns, err := intEnv("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intEnv("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}

	connMaxLifetimeStr := strings.TrimSpace(os.Getenv("DB_CONN_MAX_LIFETIME"))
	if connMaxLifetimeStr == "" {
		connMaxLifetimeStr = "0s"
	}
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	apiBaseURL := strings.TrimSpace(os.Getenv("API_BASE_URL"))
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	apiBaseURL = strings.TrimRight(apiBaseURL, "/")

	httpTimeoutSecs, err := intEnv("HTTP_TIMEOUT_SECONDS", defaultHTTPTimeoutSecs)
	if err != nil {
		return Config{}, err
	}
	if httpTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("HTTP_TIMEOUT_SECONDS must be > 0, got %d", httpTimeoutSecs)
	}

	refreshWindowDays, err := intEnv("REFRESH_WINDOW_DAYS", defaultRefreshWindow)
	if err != nil {
		return Config{}, err
	}
	if refreshWindowDays <= 0 {
		return Config{}, fmt.Errorf("REFRESH_WINDOW_DAYS must be > 0, got %d", refreshWindowDays)
	}

	throttleMS, err := intEnv("THROTTLE_INTERVAL_MS", defaultThrottleMS)
	if err != nil {
		return Config{}, err
	}
	if throttleMS <= 0 {
		return Config{}, fmt.Errorf("THROTTLE_INTERVAL_MS must be > 0, got %d", throttleMS)
	}

	mqttPort, err := intEnv("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "bus-assistant"
	}
	mqttTopicPrefix := strings.TrimSpace(os.Getenv("MQTT_TOPIC_PREFIX"))
	if mqttTopicPrefix == "" {
		mqttTopicPrefix = "busassistant"
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		MetricsAddr:           strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		APIBaseURL:            apiBaseURL,
		AccountKey:            strings.TrimSpace(os.Getenv("DATAMALL_ACCOUNT_KEY")),
		HTTPTimeout:           time.Duration(httpTimeoutSecs) * time.Second,
		RefreshWindow:         time.Duration(refreshWindowDays) * 24 * time.Hour,
		ThrottleInterval:      time.Duration(throttleMS) * time.Millisecond,
		MQTTBroker:            strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTPort:              mqttPort,
		MQTTClientID:          mqttClientID,
		MQTTTopicPrefix:       mqttTopicPrefix,
	}, nil
}

func intEnv(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
