package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Command je příkaz pro aktuátor přijatý přes MQTT.
type Command struct {
	On       bool
	Received time.Time
}

var errNotCommand = errors.New("payload není příkaz (očekáváno \"0\" nebo \"1\")")

// ParseCommand převede payload na příkaz. Platné jsou jen "1" a "0".
func ParseCommand(payload []byte) (Command, error) {
	switch strings.TrimSpace(string(payload)) {
	case "1":
		return Command{On: true, Received: time.Now()}, nil
	case "0":
		return Command{On: false, Received: time.Now()}, nil
	default:
		return Command{}, errNotCommand
	}
}

// CommandChannel drží jediné MQTT spojení zařízení: jeden client ID,
// jeden odebíraný kanál. Automatický reconnect paha je vypnutý,
// o znovupřipojení se stará Handle() volaná ze smyčky.
type CommandChannel struct {
	client      mqtt.Client
	channel     string
	retryDelay  time.Duration
	waitTimeout time.Duration
	logger      *slog.Logger

	// Buffer pro jeden příkaz. Novější příkaz přepíše nepřevzatý starší.
	commands chan Command
}

// NewCommandChannel připraví klienta. Připojení proběhne až v Handle().
func NewCommandChannel(cfg Config, logger *slog.Logger) *CommandChannel {
	c := &CommandChannel{
		channel:     cfg.MQTTChannel,
		retryDelay:  cfg.MQTTRetryDelay,
		waitTimeout: 10 * time.Second,
		logger:      logger,
		commands:    make(chan Command, 1),
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTTBroker).SetClientID(cfg.MQTTClientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetDefaultPublishHandler(c.onMessage)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn("MQTT spojení ztraceno", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// newCommandChannelWithClient se používá v testech.
func newCommandChannelWithClient(client mqtt.Client, channel string, retryDelay time.Duration, logger *slog.Logger) *CommandChannel {
	return &CommandChannel{
		client:      client,
		channel:     channel,
		retryDelay:  retryDelay,
		waitTimeout: time.Second,
		logger:      logger,
		commands:    make(chan Command, 1),
	}
}

// SetLogger vymění logger. Main ho volá, když se logy začnou posílat i do MQTT.
func (c *CommandChannel) SetLogger(logger *slog.Logger) { c.logger = logger }

// Client vrací paho klienta (používá ho MqttLogWriter).
func (c *CommandChannel) Client() mqtt.Client { return c.client }

// Commands je kanál, ze kterého smyčka odebírá příkazy.
func (c *CommandChannel) Commands() <-chan Command { return c.commands }

// Connected říká, jestli je klient připojen.
func (c *CommandChannel) Connected() bool { return c.client.IsConnected() }

// Handle zkontroluje spojení. Pokud klient není připojen, zkusí se připojit.
// Při neúspěchu čeká retryDelay (firmware: 5 s) a vrací chybu. Čekání blokuje
// smyčku stejně jako delay(5000) ve firmwaru, jen jde přerušit contextem.
func (c *CommandChannel) Handle(ctx context.Context) error {
	if c.client.IsConnected() {
		return nil
	}

	c.logger.Info("Startuji MQTT spojení...", "channel", c.channel)
	err := c.connect()
	if err == nil {
		return nil
	}

	c.logger.Warn("MQTT připojení selhalo, zkusím znovu", "error", err, "retry_in", c.retryDelay)
	if werr := sleepCtx(ctx, c.retryDelay); werr != nil {
		return werr
	}
	return err
}

func (c *CommandChannel) connect() error {
	if err := waitToken(c.client.Connect(), c.waitTimeout); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	// Po připojení: odběr kanálu a ohlášení "connected" (stejně jako firmware).
	// Bez odběru je spojení k ničemu. Odpojíme, aby další Handle() prošel
	// celou sekvenci connect -> subscribe -> "connected" znovu.
	if err := waitToken(c.client.Subscribe(c.channel, 0, c.onMessage), c.waitTimeout); err != nil {
		c.client.Disconnect(0)
		return fmt.Errorf("subscribe %s: %w", c.channel, err)
	}
	if err := waitToken(c.client.Publish(c.channel, 0, false, "connected"), c.waitTimeout); err != nil {
		c.client.Disconnect(0)
		return fmt.Errorf("publish %s: %w", c.channel, err)
	}

	c.logger.Info("Připojeno k MQTT, poslouchám na kanálu", "channel", c.channel)
	return nil
}

// onMessage běží v goroutině paha, proto jen předá příkaz do kanálu.
func (c *CommandChannel) onMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := string(msg.Payload())
	c.logger.Info("Přijata MQTT zpráva", "topic", msg.Topic(), "payload", payload)

	cmd, err := ParseCommand(msg.Payload())
	if err != nil {
		c.logger.Debug("Zpráva ignorována", "topic", msg.Topic(), "důvod", err)
		return
	}
	c.offer(cmd)
}

// offer vloží příkaz do bufferu, případně zahodí starší nepřevzatý.
func (c *CommandChannel) offer(cmd Command) {
	for {
		select {
		case c.commands <- cmd:
			return
		default:
		}
		select {
		case <-c.commands:
		default:
		}
	}
}

// Close odpojí klienta s timeoutem 250ms.
func (c *CommandChannel) Close() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

func waitToken(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errors.New("vypršel čas čekání na broker")
	}
	return token.Error()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
