package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config drží konfiguraci agenta zařízení.
// Původní firmware měl vše natvrdo v kódu (IP serveru, ID zařízení, MQTT kanál).
// Tady jsou to ENV proměnné a defaulty odpovídají původním konstantám.
type Config struct {
	// REST backend
	ServerURL   string
	HTTPTimeout time.Duration

	// Identita zařízení
	DeviceID       int
	DeviceSerialID string
	DeviceName     string
	DeviceGroup    int

	// MQTT Konfigurace
	MQTTBroker     string
	MQTTClientID   string
	MQTTChannel    string        // Kanál, na kterém posloucháme příkazy "0"/"1"
	MQTTRetryDelay time.Duration // Pauza po neúspěšném připojení (firmware: 5 s)

	// Smyčka
	PollInterval          time.Duration
	SensorRefreshInterval time.Duration // 0 = ověřit ID senzoru v každém tiku
	TimestampMode         string        // "uptime" (ms od startu) nebo "unix" (ms podle NTP)

	// Čas
	NTPServer   string
	NTPInterval time.Duration

	// Hardware
	Profile       string // esp8266 | esp32
	ProfileFile   string // volitelný YAML, přepisuje hodnoty profilu
	PinBackend    string // memory | modbus
	ModbusAddr    string
	ModbusSlaveID byte

	// Volitelná lokální úložiště, prázdná hodnota = vypnuto
	PostgresURL string
	ValkeyAddr  string

	// App Konfigurace
	HTTPPort  string // Lokální status API, prázdné = vypnuto
	LogLevel  string
	LogToMQTT bool
}

const (
	TimestampUptime = "uptime"
	TimestampUnix   = "unix"
)

// LoadConfig načte nastavení. Pokud proměnná chybí nebo nejde přečíst, použije default.
func LoadConfig() Config {
	deviceID := getEnvInt("DEVICE_ID", 124)
	clientID := getEnv("MQTT_CLIENT_ID", "mqttChannelDevice1")

	cfg := Config{
		ServerURL:   getEnv("SERVER_URL", "http://192.168.43.195:8080/"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 5*time.Second),

		DeviceID:       deviceID,
		DeviceSerialID: getEnv("DEVICE_SERIAL_ID", strconv.Itoa(deviceID)),
		DeviceName:     getEnv("DEVICE_NAME", "Device number "+strconv.Itoa(deviceID)),
		DeviceGroup:    getEnvInt("DEVICE_GROUP", 1),

		MQTTBroker:     getEnv("MQTT_BROKER", "tcp://192.168.43.195:1883"),
		MQTTClientID:   clientID,
		MQTTChannel:    getEnv("MQTT_CHANNEL", clientID),
		MQTTRetryDelay: getEnvDuration("MQTT_RETRY_DELAY", 5*time.Second),

		PollInterval:          getEnvDuration("POLL_INTERVAL", time.Second),
		SensorRefreshInterval: getEnvDuration("SENSOR_REFRESH_INTERVAL", 30*time.Second),
		TimestampMode:         strings.ToLower(getEnv("TIMESTAMP_MODE", TimestampUptime)),

		NTPServer:   getEnv("NTP_SERVER", "pool.ntp.org"),
		NTPInterval: getEnvDuration("NTP_INTERVAL", 60*time.Second),

		Profile:       strings.ToLower(getEnv("PROFILE", "esp8266")),
		ProfileFile:   getEnv("PROFILE_FILE", ""),
		PinBackend:    strings.ToLower(getEnv("PIN_BACKEND", "memory")),
		ModbusAddr:    getEnv("MODBUS_ADDR", "127.0.0.1:502"),
		ModbusSlaveID: byte(getEnvInt("MODBUS_SLAVE_ID", 1)),

		PostgresURL: getEnv("POSTGRES_URL", ""),
		ValkeyAddr:  getEnv("VALKEY_ADDR", ""),

		HTTPPort:  getEnv("HTTP_PORT", "8081"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogToMQTT: getEnvBool("LOG_TO_MQTT", false),
	}

	if cfg.TimestampMode != TimestampUnix {
		cfg.TimestampMode = TimestampUptime
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return cfg
}

// SlogLevel převede LOG_LEVEL na slog.Level. Neznámá hodnota = Info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// getEnv je pomocná funkce pro DRY (Don't Repeat Yourself).
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// getEnvDuration čte Go duration ("5s", "1m"). Stejně jako system-monitor
// při chybě tiše použije default.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}
