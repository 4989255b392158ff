package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Sběrač logů, které agenti posílají přes MQTT (LOG_TO_MQTT=true).
func main() {
	cfg := LoadConfig()

	// 1. Logger (jen stdout, abychom viděli, že collector běží)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	logger.Info("Startuji Log Collector", "dir", cfg.LogDir, "topic", cfg.LogTopic)

	// 2. Adresář pro logy
	collector, err := NewCollector(cfg.LogDir, logger)
	if err != nil {
		logger.Error("Nelze připravit adresář pro logy", "error", err)
		os.Exit(1)
	}

	// 3. MQTT. Na rozdíl od agenta necháváme automatický reconnect zapnutý,
	// odběr se obnoví v OnConnect handleru.
	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTTBroker).SetClientID(cfg.MQTTClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetDefaultPublishHandler(collector.HandleMessage)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		if token := c.Subscribe(cfg.LogTopic, 0, collector.HandleMessage); token.Wait() && token.Error() != nil {
			logger.Error("Subscribe failed", "topic", cfg.LogTopic, "error", token.Error())
			return
		}
		logger.Info("Poslouchám logy", "topic", cfg.LogTopic)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT spojení ztraceno", "error", err)
	})

	// 4. Připojení (s ConnectRetry se token dokončí až po úspěchu)
	client := mqtt.NewClient(opts)
	client.Connect()
	defer client.Disconnect(250)

	// 5. Čekání na signál
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Ukončuji Log Collector")
}
