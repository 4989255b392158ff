package main

import (
	"context"
	"sync"
)

// PinDriver abstrahuje piny desky. Implementace: MemoryPins (simulace)
// a ModbusPins (vzdálený I/O modul).
type PinDriver interface {
	DigitalRead(ctx context.Context, pin int) (bool, error)
	AnalogRead(ctx context.Context, pin int) (int, error)
	DigitalWrite(ctx context.Context, pin int, high bool) error
	AnalogWrite(ctx context.Context, pin int, value int) error
}

// MemoryPins je simulovaná deska. Vstupy se nastavují přes SetDigital/SetAnalog,
// výstupy se čtou přes Digital/Analog. Bezpečné pro více goroutin.
type MemoryPins struct {
	mu      sync.RWMutex
	digital map[int]bool
	analog  map[int]int
}

func NewMemoryPins() *MemoryPins {
	return &MemoryPins{
		digital: make(map[int]bool),
		analog:  make(map[int]int),
	}
}

func (m *MemoryPins) DigitalRead(_ context.Context, pin int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.digital[pin], nil
}

func (m *MemoryPins) AnalogRead(_ context.Context, pin int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.analog[pin], nil
}

func (m *MemoryPins) DigitalWrite(_ context.Context, pin int, high bool) error {
	m.SetDigital(pin, high)
	return nil
}

func (m *MemoryPins) AnalogWrite(_ context.Context, pin int, value int) error {
	m.SetAnalog(pin, value)
	return nil
}

func (m *MemoryPins) SetDigital(pin int, high bool) {
	m.mu.Lock()
	m.digital[pin] = high
	m.mu.Unlock()
}

func (m *MemoryPins) SetAnalog(pin int, value int) {
	m.mu.Lock()
	m.analog[pin] = value
	m.mu.Unlock()
}

func (m *MemoryPins) Digital(pin int) bool {
	v, _ := m.DigitalRead(context.Background(), pin)
	return v
}

func (m *MemoryPins) Analog(pin int) int {
	v, _ := m.AnalogRead(context.Background(), pin)
	return v
}
