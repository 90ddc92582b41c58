package config

import (
	"log/slog"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "METRICS_ADDR",
		"DB_DRIVER", "DB_DSN", "SQLITE_PATH",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
		"API_BASE_URL", "DATAMALL_ACCOUNT_KEY", "HTTP_TIMEOUT_SECONDS",
		"REFRESH_WINDOW_DAYS", "THROTTLE_INTERVAL_MS",
		"MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC_PREFIX",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if got.SQLiteDriver != "sqlite3" {
		t.Errorf("SQLiteDriver = %q, want %q", got.SQLiteDriver, "sqlite3")
	}
	if got.SQLitePath != "data/bus-assistant.db" {
		t.Errorf("SQLitePath = %q, want %q", got.SQLitePath, "data/bus-assistant.db")
	}
	if got.APIBaseURL != defaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", got.APIBaseURL, defaultAPIBaseURL)
	}
	if got.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v, want %v", got.HTTPTimeout, 10*time.Second)
	}
	if got.RefreshWindow != 30*24*time.Hour {
		t.Errorf("RefreshWindow = %v, want %v", got.RefreshWindow, 30*24*time.Hour)
	}
	if got.ThrottleInterval != 15*time.Second {
		t.Errorf("ThrottleInterval = %v, want %v", got.ThrottleInterval, 15*time.Second)
	}
	if got.MQTTPort != 1883 {
		t.Errorf("MQTTPort = %d, want 1883", got.MQTTPort)
	}
	if got.MQTTClientID != "bus-assistant" {
		t.Errorf("MQTTClientID = %q, want bus-assistant", got.MQTTClientID)
	}
	if got.MQTTTopicPrefix != "busassistant" {
		t.Errorf("MQTTTopicPrefix = %q, want busassistant", got.MQTTTopicPrefix)
	}
}

func TestLoadFromEnv_AppEnv_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "staging")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("LoadFromEnv() error = nil, want non-nil")
	}
}

func TestLoadFromEnv_TrimsAPIBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "https://example.com/api/")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.APIBaseURL != "https://example.com/api" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", got.APIBaseURL)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REFRESH_WINDOW_DAYS", "7")
	t.Setenv("THROTTLE_INTERVAL_MS", "20000")
	t.Setenv("METRICS_ADDR", ":9102")
	t.Setenv("MQTT_BROKER", "broker.local")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.RefreshWindow != 7*24*time.Hour {
		t.Errorf("RefreshWindow = %v, want %v", got.RefreshWindow, 7*24*time.Hour)
	}
	if got.ThrottleInterval != 20*time.Second {
		t.Errorf("ThrottleInterval = %v, want %v", got.ThrottleInterval, 20*time.Second)
	}
	if got.MetricsAddr != ":9102" {
		t.Errorf("MetricsAddr = %q, want :9102", got.MetricsAddr)
	}
	if got.MQTTBroker != "broker.local" {
		t.Errorf("MQTTBroker = %q, want broker.local", got.MQTTBroker)
	}
}

func TestLoadFromEnv_InvalidNumbers(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "refresh window not a number", key: "REFRESH_WINDOW_DAYS", value: "soon"},
		{name: "refresh window zero", key: "REFRESH_WINDOW_DAYS", value: "0"},
		{name: "throttle not a number", key: "THROTTLE_INTERVAL_MS", value: "fast"},
		{name: "throttle negative", key: "THROTTLE_INTERVAL_MS", value: "-1"},
		{name: "http timeout zero", key: "HTTP_TIMEOUT_SECONDS", value: "0"},
		{name: "mqtt port not a number", key: "MQTT_PORT", value: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q: error = nil, want non-nil", tt.key, tt.value)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    slog.Level
		wantErr bool
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "warning alias", in: "warning", want: slog.LevelWarn},
		{name: "case insensitive", in: "DeBuG", want: slog.LevelDebug},
		{name: "trims whitespace", in: "  warn \n", want: slog.LevelWarn},
		{name: "garbage", in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
