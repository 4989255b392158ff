package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fakeClock struct {
	now     time.Time
	uptime  time.Duration
	updates int
}

func (c *fakeClock) Now() time.Time           { return c.now }
func (c *fakeClock) Uptime() time.Duration    { return c.uptime }
func (c *fakeClock) Update(_ context.Context) { c.updates++ }
func (c *fakeClock) atSecond(sec int) *fakeClock {
	c.now = time.Date(2026, 10, 19, 12, 0, sec, 0, time.UTC)
	return c
}

type fakeBackend struct {
	device     Device
	deviceErr  error
	sensors    []Sensor
	sensorsErr error
	actuators  []Actuator
	postErr    error

	sensorTypes    []string
	putDevices     []Device
	sensorValues   []SensorValue
	actuatorStates []ActuatorStatus
}

func (b *fakeBackend) GetDevice(_ context.Context, deviceID int) (Device, error) {
	return b.device, b.deviceErr
}

func (b *fakeBackend) PutDevice(_ context.Context, deviceID int, d Device) error {
	b.putDevices = append(b.putDevices, d)
	return nil
}

func (b *fakeBackend) GetSensors(_ context.Context, deviceID int, sensorType string) ([]Sensor, error) {
	b.sensorTypes = append(b.sensorTypes, sensorType)
	return b.sensors, b.sensorsErr
}

func (b *fakeBackend) GetActuators(_ context.Context, deviceID int, actuatorType string) ([]Actuator, error) {
	return b.actuators, nil
}

func (b *fakeBackend) PostSensorValue(_ context.Context, v SensorValue) error {
	if b.postErr != nil {
		return b.postErr
	}
	b.sensorValues = append(b.sensorValues, v)
	return nil
}

func (b *fakeBackend) PostActuatorStatus(_ context.Context, s ActuatorStatus) error {
	if b.postErr != nil {
		return b.postErr
	}
	b.actuatorStates = append(b.actuatorStates, s)
	return nil
}

type fakeRecorder struct {
	values []SensorValue
	states []ActuatorStatus
	err    error
}

func (r *fakeRecorder) RecordSensorValue(_ context.Context, v SensorValue) error {
	r.values = append(r.values, v)
	return r.err
}

func (r *fakeRecorder) RecordActuatorStatus(_ context.Context, s ActuatorStatus) error {
	r.states = append(r.states, s)
	return r.err
}

type fakeCommandSource struct {
	commands  chan Command
	handled   int
	connected bool
}

func newFakeCommandSource() *fakeCommandSource {
	return &fakeCommandSource{commands: make(chan Command, 1)}
}

func (f *fakeCommandSource) Handle(_ context.Context) error {
	f.handled++
	if !f.connected {
		return errors.New("broker nedostupný")
	}
	return nil
}

func (f *fakeCommandSource) Commands() <-chan Command { return f.commands }
func (f *fakeCommandSource) Connected() bool          { return f.connected }
