package main

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttPublisher je jediná metoda klienta, kterou writer potřebuje.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MqttLogWriter implementuje rozhraní io.Writer.
// Vše, co se do něj zapíše, se odešle do MQTT na topic logs/<client id>.
type MqttLogWriter struct {
	client mqttPublisher
	topic  string
}

func NewMqttLogWriter(client mqttPublisher, clientID string) *MqttLogWriter {
	return &MqttLogWriter{
		client: client,
		topic:  fmt.Sprintf("logs/%s", clientID),
	}
}

// Write posílá řádek fire-and-forget (bez token.Wait), aby logování
// nebrzdilo smyčku. Když klient není připojen, paho zprávu jen odmítne.
func (w *MqttLogWriter) Write(p []byte) (n int, err error) {
	// Payload musíme zkopírovat, slog buffer znovu používá.
	payload := make([]byte, len(p))
	copy(payload, p)

	w.client.Publish(w.topic, 0, false, payload)
	return len(p), nil
}
