package main

import (
	"context"
	"errors"
	"testing"

	mb "github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModbus simuluje I/O modul v paměti.
type fakeModbus struct {
	mb.Client

	discrete map[uint16]bool
	input    map[uint16]uint16
	coils    map[uint16]uint16
	holding  map[uint16]uint16
	err      error
}

func newFakeModbus() *fakeModbus {
	return &fakeModbus{
		discrete: map[uint16]bool{},
		input:    map[uint16]uint16{},
		coils:    map[uint16]uint16{},
		holding:  map[uint16]uint16{},
	}
}

func (f *fakeModbus) ReadDiscreteInputs(address, _ uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.discrete[address] {
		return []byte{0x01}, nil
	}
	return []byte{0x00}, nil
}

func (f *fakeModbus) ReadInputRegisters(address, _ uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := f.input[address]
	return []byte{byte(v >> 8), byte(v)}, nil
}

func (f *fakeModbus) WriteSingleCoil(address, value uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.coils[address] = value
	return []byte{byte(value >> 8), byte(value)}, nil
}

func (f *fakeModbus) WriteSingleRegister(address, value uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.holding[address] = value
	return []byte{byte(value >> 8), byte(value)}, nil
}

func TestModbusPinsRead(t *testing.T) {
	dev := newFakeModbus()
	dev.discrete[0] = true
	dev.input[34] = 3071
	pins := newModbusPinsWithClient(dev)
	ctx := context.Background()

	high, err := pins.DigitalRead(ctx, 0)
	require.NoError(t, err)
	assert.True(t, high)

	high, err = pins.DigitalRead(ctx, 13)
	require.NoError(t, err)
	assert.False(t, high)

	v, err := pins.AnalogRead(ctx, 34)
	require.NoError(t, err)
	assert.Equal(t, 3071, v)
}

func TestModbusPinsWrite(t *testing.T) {
	dev := newFakeModbus()
	pins := newModbusPinsWithClient(dev)
	ctx := context.Background()

	require.NoError(t, pins.DigitalWrite(ctx, 15, true))
	require.NoError(t, pins.DigitalWrite(ctx, 16, false))
	assert.Equal(t, coilOn, dev.coils[15])
	assert.Equal(t, coilOff, dev.coils[16])

	require.NoError(t, pins.AnalogWrite(ctx, 2, 512))
	assert.Equal(t, uint16(512), dev.holding[2])

	assert.Error(t, pins.AnalogWrite(ctx, 2, 70000))
	assert.Error(t, pins.AnalogWrite(ctx, 2, -1))
}

func TestModbusPinsErrors(t *testing.T) {
	dev := newFakeModbus()
	dev.err = errors.New("exception '2' (illegal data address)")
	pins := newModbusPinsWithClient(dev)
	ctx := context.Background()

	_, err := pins.DigitalRead(ctx, 1)
	assert.ErrorContains(t, err, "discrete input 1")
	_, err = pins.AnalogRead(ctx, 1)
	assert.ErrorContains(t, err, "input register 1")
	assert.ErrorContains(t, pins.DigitalWrite(ctx, 1, true), "coil 1")

	_, err = pins.DigitalRead(ctx, -1)
	assert.ErrorContains(t, err, "mimo rozsah")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = pins.AnalogRead(cancelled, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModbusPinsCloseWithoutHandler(t *testing.T) {
	assert.NoError(t, newModbusPinsWithClient(newFakeModbus()).Close())
}
