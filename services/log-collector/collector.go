package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var errBadTopic = errors.New("topic neodpovídá formátu logs/<zařízení>")

// Collector ukládá logy agentů do souborů, jeden soubor na zařízení.
type Collector struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex // paho může volat handler souběžně (SetOrderMatters(false))
}

func NewCollector(dir string, logger *slog.Logger) (*Collector, error) {
	// Permission 0755: vlastník může psát, ostatní číst.
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("nelze vytvořit adresář %s: %w", dir, err)
	}
	return &Collector{dir: dir, logger: logger}, nil
}

// HandleMessage je MQTT callback pro každou logovací zprávu.
func (c *Collector) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	device, err := deviceFromTopic(msg.Topic())
	if err != nil {
		c.logger.Warn("Ignoruji zprávu se špatným formátem topicu", "topic", msg.Topic())
		return
	}
	if err := c.Append(device, msg.Payload()); err != nil {
		c.logger.Error("Chyba při zápisu do souboru", "device", device, "error", err)
	}
}

// Append připíše řádek do <dir>/<device>.log.
// Open-Write-Close pro každý zápis, aby fungovala rotace logů zvenku.
func (c *Collector) Append(device string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	filename := filepath.Join(c.dir, device+".log")
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	// slog řádek už newline má, holý MQTT payload ne.
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data[:len(data):len(data)], '\n')
	}
	_, err = f.Write(data)
	return err
}

// deviceFromTopic vytáhne client ID zařízení z "logs/<client id>".
// Jméno se stává názvem souboru, proto nesmí obsahovat cestu.
func deviceFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 2 || parts[0] != "logs" {
		return "", errBadTopic
	}
	device := parts[1]
	if device == "" || device == "." || device == ".." || strings.ContainsAny(device, `\`+string(os.PathSeparator)) {
		return "", errBadTopic
	}
	return device, nil
}
