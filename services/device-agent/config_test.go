package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 124, cfg.DeviceID)
	assert.Equal(t, "124", cfg.DeviceSerialID)
	assert.Equal(t, "Device number 124", cfg.DeviceName)
	assert.Equal(t, "http://192.168.43.195:8080/", cfg.ServerURL)
	assert.Equal(t, "tcp://192.168.43.195:1883", cfg.MQTTBroker)
	assert.Equal(t, "mqttChannelDevice1", cfg.MQTTClientID)
	assert.Equal(t, "mqttChannelDevice1", cfg.MQTTChannel)
	assert.Equal(t, 5*time.Second, cfg.MQTTRetryDelay)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, TimestampUptime, cfg.TimestampMode)
	assert.Equal(t, "esp8266", cfg.Profile)
	assert.Equal(t, "memory", cfg.PinBackend)
	assert.Empty(t, cfg.PostgresURL)
	assert.Empty(t, cfg.ValkeyAddr)
	assert.False(t, cfg.LogToMQTT)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DEVICE_ID", "7")
	t.Setenv("MQTT_CLIENT_ID", "mqttChannelDevice7")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("TIMESTAMP_MODE", "UNIX")
	t.Setenv("PROFILE", "ESP32")
	t.Setenv("MODBUS_SLAVE_ID", "3")
	t.Setenv("LOG_TO_MQTT", "true")

	cfg := LoadConfig()

	assert.Equal(t, 7, cfg.DeviceID)
	assert.Equal(t, "7", cfg.DeviceSerialID)
	assert.Equal(t, "Device number 7", cfg.DeviceName)
	assert.Equal(t, "mqttChannelDevice7", cfg.MQTTChannel)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, TimestampUnix, cfg.TimestampMode)
	assert.Equal(t, "esp32", cfg.Profile)
	assert.Equal(t, byte(3), cfg.ModbusSlaveID)
	assert.True(t, cfg.LogToMQTT)
}

func TestLoadConfigInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DEVICE_ID", "abc")
	t.Setenv("MQTT_RETRY_DELAY", "soon")
	t.Setenv("POLL_INTERVAL", "-1s")
	t.Setenv("TIMESTAMP_MODE", "gps")

	cfg := LoadConfig()

	assert.Equal(t, 124, cfg.DeviceID)
	assert.Equal(t, 5*time.Second, cfg.MQTTRetryDelay)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, TimestampUptime, cfg.TimestampMode)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "verbose"}.SlogLevel())
}
