package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	mb "github.com/goburrow/modbus"
)

// Hodnoty cívky pro funkci 05 (Write Single Coil).
const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// ModbusPins mapuje piny na registry vzdáleného I/O modulu (Modbus TCP):
//
//	DigitalRead  -> discrete input
//	AnalogRead   -> input register
//	DigitalWrite -> coil
//	AnalogWrite  -> holding register
//
// Číslo pinu = adresa registru.
type ModbusPins struct {
	mu      sync.Mutex // goburrow klient není thread-safe
	client  mb.Client
	handler *mb.TCPClientHandler
}

// NewModbusPins se připojí k I/O modulu.
func NewModbusPins(address string, slaveID byte, timeout time.Duration) (*ModbusPins, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	h := mb.NewTCPClientHandler(address)
	h.Timeout = timeout
	h.SlaveId = slaveID
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}
	return &ModbusPins{client: mb.NewClient(h), handler: h}, nil
}

// newModbusPinsWithClient se používá v testech.
func newModbusPinsWithClient(c mb.Client) *ModbusPins {
	return &ModbusPins{client: c}
}

func (m *ModbusPins) Close() error {
	if m.handler == nil {
		return nil
	}
	return m.handler.Close()
}

func (m *ModbusPins) DigitalRead(ctx context.Context, pin int) (bool, error) {
	addr, err := pinAddress(ctx, pin)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := m.client.ReadDiscreteInputs(addr, 1)
	if err != nil {
		return false, fmt.Errorf("discrete input %d: %w", addr, err)
	}
	return len(data) > 0 && data[0]&0x01 == 0x01, nil
}

func (m *ModbusPins) AnalogRead(ctx context.Context, pin int) (int, error) {
	addr, err := pinAddress(ctx, pin)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := m.client.ReadInputRegisters(addr, 1)
	if err != nil {
		return 0, fmt.Errorf("input register %d: %w", addr, err)
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("input register %d: krátká odpověď (%d B)", addr, len(data))
	}
	return int(binary.BigEndian.Uint16(data)), nil
}

func (m *ModbusPins) DigitalWrite(ctx context.Context, pin int, high bool) error {
	addr, err := pinAddress(ctx, pin)
	if err != nil {
		return err
	}
	value := coilOff
	if high {
		value = coilOn
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.client.WriteSingleCoil(addr, value); err != nil {
		return fmt.Errorf("coil %d: %w", addr, err)
	}
	return nil
}

func (m *ModbusPins) AnalogWrite(ctx context.Context, pin int, value int) error {
	addr, err := pinAddress(ctx, pin)
	if err != nil {
		return err
	}
	if value < 0 || value > 0xFFFF {
		return fmt.Errorf("holding register %d: hodnota %d mimo rozsah", addr, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.client.WriteSingleRegister(addr, uint16(value)); err != nil {
		return fmt.Errorf("holding register %d: %w", addr, err)
	}
	return nil
}

func pinAddress(ctx context.Context, pin int) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if pin < 0 || pin > 0xFFFF {
		return 0, fmt.Errorf("pin %d mimo rozsah adres", pin)
	}
	return uint16(pin), nil
}
