package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Backend je část REST API, kterou agent používá. Implementuje ji APIClient.
type Backend interface {
	GetDevice(ctx context.Context, deviceID int) (Device, error)
	PutDevice(ctx context.Context, deviceID int, d Device) error
	GetSensors(ctx context.Context, deviceID int, sensorType string) ([]Sensor, error)
	GetActuators(ctx context.Context, deviceID int, actuatorType string) ([]Actuator, error)
	PostSensorValue(ctx context.Context, v SensorValue) error
	PostActuatorStatus(ctx context.Context, s ActuatorStatus) error
}

// TickClock jsou hodiny, které se v každém tiku aktualizují (NTPClock).
type TickClock interface {
	Clock
	Update(ctx context.Context)
}

// CommandSource je MQTT strana agenta (CommandChannel).
type CommandSource interface {
	Handle(ctx context.Context) error
	Commands() <-chan Command
	Connected() bool
}

// State je snímek stavu zařízení pro status API.
type State struct {
	DeviceID      int        `json:"deviceId"`
	Profile       string     `json:"profile"`
	SensorID      int        `json:"sensorId"`
	ActuatorID    int        `json:"actuatorId"`
	ActuatorOn    *bool      `json:"actuatorOn"` // nil = zatím nenastaveno
	LastValue     *float64   `json:"lastValue"`  // nil = zatím nic nezměřeno
	LastCommand   string     `json:"lastCommand,omitempty"`
	LastCommandAt *time.Time `json:"lastCommandAt,omitempty"`
	MQTTConnected bool       `json:"mqttConnected"`
	Ticks         uint64     `json:"ticks"`
	ReportsSent   uint64     `json:"reportsSent"`
	ReportsFailed uint64     `json:"reportsFailed"`
	LastError     string     `json:"lastError,omitempty"`
	UptimeMillis  int64      `json:"uptimeMillis"`
}

// Agent je "firmware" zařízení: jedna smyčka, která měří, spíná aktuátor,
// hlásí do backendu a obsluhuje MQTT. Veškerý stav patří goroutině smyčky,
// ven se dostává jen kopie přes Snapshot().
type Agent struct {
	cfg      Config
	profile  Profile
	api      Backend
	pins     PinDriver
	clock    TickClock
	mqtt     CommandSource
	recorder Recorder
	logger   *slog.Logger

	readHostTemp func(ctx context.Context) (float64, error)

	// Stav vlastněný smyčkou
	sensorID        int
	sensorRefreshed bool
	lastRefresh     time.Duration // uptime posledního ověření ID senzoru
	actuatorOn      bool
	actuatorKnown   bool
	lastValue       *float64
	lastCommand     *Command
	ticks           uint64
	reportsSent     uint64
	reportsFailed   uint64
	lastErr         error

	snapshot atomic.Pointer[State]
}

func NewAgent(cfg Config, profile Profile, api Backend, pins PinDriver, clock TickClock, logger *slog.Logger) *Agent {
	a := &Agent{
		cfg:          cfg,
		profile:      profile,
		api:          api,
		pins:         pins,
		clock:        clock,
		logger:       logger,
		readHostTemp: HostTemperature,
		sensorID:     profile.SensorID,
	}
	a.publishState()
	return a
}

// SetCommandSource připojí MQTT kanál. Bez něj agent jen měří a hlásí.
func (a *Agent) SetCommandSource(c CommandSource) { a.mqtt = c }

// SetRecorder připojí lokální úložiště.
func (a *Agent) SetRecorder(r Recorder) { a.recorder = r }

// Snapshot vrací poslední publikovaný stav. Bezpečné volat z jiné goroutiny.
func (a *Agent) Snapshot() State {
	return *a.snapshot.Load()
}

// Announce ohlásí zařízení backendu: načte svůj záznam, senzory a aktuátory
// a pošle aktuální popis (PUT). Chyby se jen logují.
func (a *Agent) Announce(ctx context.Context) {
	id := a.cfg.DeviceID

	if d, err := a.api.GetDevice(ctx, id); err != nil {
		a.fail("načtení zařízení", err)
	} else {
		a.logger.Info("Zařízení načteno", "idDevice", d.IDDevice, "name", d.Name,
			"deviceSerialId", d.DeviceSerialID, "mqttChannel", d.MQTTChannel, "idGroup", d.IDGroup)
	}

	if sensors, err := a.api.GetSensors(ctx, id, a.profile.SensorType); err != nil {
		a.fail("načtení senzorů", err)
	} else {
		for _, s := range sensors {
			a.logger.Info("Senzor", "idSensor", s.IDSensor, "name", s.Name, "sensorType", s.SensorType, "idDevice", s.IDDevice)
		}
		a.adoptSensorID(sensors)
	}

	if actuators, err := a.api.GetActuators(ctx, id, a.profile.ActuatorType); err != nil {
		a.fail("načtení aktuátorů", err)
	} else {
		for _, act := range actuators {
			a.logger.Info("Aktuátor", "idActuator", act.IDActuator, "name", act.Name, "actuatorType", act.ActuatorType, "idDevice", act.IDDevice)
		}
	}

	desc := Device{
		DeviceSerialID: a.cfg.DeviceSerialID,
		Name:           a.cfg.DeviceName,
		MQTTChannel:    a.cfg.MQTTChannel,
		IDGroup:        a.cfg.DeviceGroup,
	}
	if err := a.api.PutDevice(ctx, id, desc); err != nil {
		a.fail("aktualizace zařízení", err)
	} else {
		a.logger.Info("Popis zařízení odeslán", "name", desc.Name, "mqttChannel", desc.MQTTChannel)
	}

	a.publishState()
}

// Run je hlavní smyčka. Tik hned po startu, pak každý PollInterval.
// Příkazy z MQTT se aplikují okamžitě, nečekají na další tik.
func (a *Agent) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	var commands <-chan Command
	if a.mqtt != nil {
		commands = a.mqtt.Commands()
	}

	a.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Tick(ctx)
		case cmd := <-commands:
			a.ApplyCommand(ctx, cmd)
		}
	}
}

// Tick je jedno kolo smyčky firmwaru.
func (a *Agent) Tick(ctx context.Context) {
	a.ticks++
	defer a.publishState()

	a.refreshSensorID(ctx)
	a.clock.Update(ctx)

	sec := a.clock.Now().Second()
	a.logger.Debug("Tik", "tick", a.ticks, "second", sec)

	// Varianta esp8266 měří jen v lichých sekundách.
	if !a.profile.OddSecondsOnly || sec%2 == 1 {
		a.sense(ctx)
	}
	if a.profile.DiagEverySeconds > 0 && sec%a.profile.DiagEverySeconds == 0 {
		a.diagnostics(ctx)
	}

	a.handleMQTT(ctx)
}

// ApplyCommand přepne aktuátor podle MQTT příkazu.
func (a *Agent) ApplyCommand(ctx context.Context, cmd Command) {
	a.lastCommand = &cmd
	a.logger.Info("MQTT příkaz", "on", cmd.On)
	a.setActuator(ctx, cmd.On, "mqtt")
	a.publishState()
}

func (a *Agent) handleMQTT(ctx context.Context) {
	if a.mqtt == nil {
		return
	}
	// Chyba je už zalogovaná uvnitř, tady jen pokračujeme.
	_ = a.mqtt.Handle(ctx)

	select {
	case cmd := <-a.mqtt.Commands():
		a.ApplyCommand(ctx, cmd)
	default:
	}
}

// refreshSensorID ověří v backendu, pod jakým ID se má hlásit měření.
// Platí poslední senzor v seznamu. Při chybě nebo prázdném seznamu zůstává staré ID.
func (a *Agent) refreshSensorID(ctx context.Context) {
	up := a.clock.Uptime()
	if a.sensorRefreshed && a.cfg.SensorRefreshInterval > 0 && up-a.lastRefresh < a.cfg.SensorRefreshInterval {
		return
	}
	a.sensorRefreshed = true
	a.lastRefresh = up

	sensors, err := a.api.GetSensors(ctx, a.cfg.DeviceID, a.profile.SensorType)
	if err != nil {
		a.fail("ověření ID senzoru", err)
		return
	}
	a.adoptSensorID(sensors)
}

func (a *Agent) adoptSensorID(sensors []Sensor) {
	if len(sensors) == 0 {
		return
	}
	id := sensors[len(sensors)-1].IDSensor
	if id != a.sensorID {
		a.logger.Info("ID senzoru změněno", "old", a.sensorID, "new", id)
		a.sensorID = id
	}
}

func (a *Agent) sense(ctx context.Context) {
	value, err := a.readSensor(ctx)
	if err != nil {
		a.fail("čtení senzoru", err)
		return
	}
	a.lastValue = &value

	triggered := value > a.profile.Threshold
	a.logger.Debug("Senzor přečten", "value", value, "threshold", a.profile.Threshold, "triggered", triggered)

	a.setActuator(ctx, triggered, "sensor")

	if a.profile.Report == ReportAlways || triggered {
		a.reportSensorValue(ctx, value)
	}
}

func (a *Agent) readSensor(ctx context.Context) (float64, error) {
	switch a.profile.SensorSource {
	case SourceDigital:
		high, err := a.pins.DigitalRead(ctx, a.profile.SensorPin)
		if err != nil {
			return 0, err
		}
		return boolToFloat(high), nil
	case SourceAnalog:
		v, err := a.pins.AnalogRead(ctx, a.profile.SensorPin)
		return float64(v), err
	case SourceHostTemperature:
		return a.readHostTemp(ctx)
	default:
		return 0, fmt.Errorf("neznámý zdroj senzoru %q", a.profile.SensorSource)
	}
}

// setActuator nastaví aktuátor (a doplňkový pin opačně). Při změně stavu
// pošle ActuatorStatus do backendu.
func (a *Agent) setActuator(ctx context.Context, on bool, source string) {
	if err := a.pins.DigitalWrite(ctx, a.profile.ActuatorPin, on); err != nil {
		a.fail("zápis aktuátoru", err)
		return
	}
	if a.profile.ComplementPin != NoPin {
		if err := a.pins.DigitalWrite(ctx, a.profile.ComplementPin, !on); err != nil {
			a.fail("zápis doplňkového pinu", err)
			return
		}
	}

	changed := !a.actuatorKnown || a.actuatorOn != on
	a.actuatorOn = on
	a.actuatorKnown = true
	if !changed {
		return
	}

	a.logger.Info("Aktuátor přepnut", "on", on, "source", source, "pin", a.profile.ActuatorPin)
	a.reportActuatorStatus(ctx)
}

func (a *Agent) diagnostics(ctx context.Context) {
	if a.profile.AnalogDiagPin != NoPin {
		if v, err := a.pins.AnalogRead(ctx, a.profile.AnalogDiagPin); err != nil {
			a.fail("diagnostika analogového pinu", err)
		} else {
			a.logger.Info("Analog sensor value", "pin", a.profile.AnalogDiagPin, "value", v)
		}
	}
	if a.profile.DigitalDiagPin != NoPin {
		if high, err := a.pins.DigitalRead(ctx, a.profile.DigitalDiagPin); err != nil {
			a.fail("diagnostika digitálního pinu", err)
		} else {
			a.logger.Info("Digital sensor value", "pin", a.profile.DigitalDiagPin, "on", high)
		}
	}
}

func (a *Agent) reportSensorValue(ctx context.Context, value float64) {
	v := SensorValue{
		IDSensor:  a.sensorID,
		Timestamp: a.timestamp(),
		Value:     value,
	}
	a.record(func(r Recorder) error { return r.RecordSensorValue(ctx, v) })

	if err := a.api.PostSensorValue(ctx, v); err != nil {
		a.reportsFailed++
		a.fail("odeslání měření", err)
		return
	}
	a.reportsSent++
	a.logger.Debug("Měření odesláno", "idSensor", v.IDSensor, "value", v.Value, "timestamp", v.Timestamp)
}

func (a *Agent) reportActuatorStatus(ctx context.Context) {
	s := ActuatorStatus{
		Status:       boolToFloat(a.actuatorOn),
		StatusBinary: a.actuatorOn,
		IDActuator:   a.profile.ActuatorID,
		Timestamp:    a.timestamp(),
	}
	a.record(func(r Recorder) error { return r.RecordActuatorStatus(ctx, s) })

	if err := a.api.PostActuatorStatus(ctx, s); err != nil {
		a.reportsFailed++
		a.fail("odeslání stavu aktuátoru", err)
		return
	}
	a.reportsSent++
	a.logger.Debug("Stav aktuátoru odeslán", "idActuator", s.IDActuator, "status", s.Status)
}

func (a *Agent) record(fn func(Recorder) error) {
	if a.recorder == nil {
		return
	}
	if err := fn(a.recorder); err != nil {
		// Lokální úložiště není kritické, backend má přednost.
		a.logger.Warn("Lokální záznam selhal", "error", err)
	}
}

// timestamp vrací ms od startu (jako millis()) nebo Unix ms podle NTP.
func (a *Agent) timestamp() int64 {
	if a.cfg.TimestampMode == TimestampUnix {
		return a.clock.Now().UnixMilli()
	}
	return a.clock.Uptime().Milliseconds()
}

// fail zaloguje chybu a zapamatuje si ji. Operace se tím končí, nic se neopakuje.
func (a *Agent) fail(op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	a.lastErr = fmt.Errorf("%s: %w", op, err)
	a.logger.Error("Operace selhala", "op", op, "error", err)
}

func (a *Agent) publishState() {
	s := &State{
		DeviceID:      a.cfg.DeviceID,
		Profile:       a.profile.Name,
		SensorID:      a.sensorID,
		ActuatorID:    a.profile.ActuatorID,
		Ticks:         a.ticks,
		ReportsSent:   a.reportsSent,
		ReportsFailed: a.reportsFailed,
		UptimeMillis:  a.clock.Uptime().Milliseconds(),
	}
	if a.actuatorKnown {
		on := a.actuatorOn
		s.ActuatorOn = &on
	}
	if a.lastValue != nil {
		v := *a.lastValue
		s.LastValue = &v
	}
	if a.lastCommand != nil {
		at := a.lastCommand.Received
		s.LastCommandAt = &at
		s.LastCommand = "0"
		if a.lastCommand.On {
			s.LastCommand = "1"
		}
	}
	if a.mqtt != nil {
		s.MQTTConnected = a.mqtt.Connected()
	}
	if a.lastErr != nil {
		s.LastError = a.lastErr.Error()
	}
	a.snapshot.Store(s)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
