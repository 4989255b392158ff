package main

import (
	"log/slog"
	"os"
)

// Config drží nastavení sběrače logů zařízení.
// Hodnoty se čtou z ENV, stejně jako u agenta.
type Config struct {
	// MQTTBroker: Adresa brokera, na který agenti posílají logy (LOG_TO_MQTT=true).
	MQTTBroker string

	MQTTClientID string

	// LogTopic: Topic s logy agentů. Agent publikuje na logs/<client id>.
	LogTopic string

	// LogDir: Adresář, kam se ukládá jeden soubor na zařízení.
	LogDir string

	LogLevel string
}

// LoadConfig načte konfiguraci z OS. Pokud proměnná chybí, použije default.
func LoadConfig() Config {
	return Config{
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://192.168.43.195:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "device-log-collector"),
		LogTopic:     getEnv("LOG_TOPIC", "logs/#"),
		LogDir:       getEnv("LOG_DIR", "/var/log/devices"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// getEnv je pomocná funkce pro bezpečné čtení ENV.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
