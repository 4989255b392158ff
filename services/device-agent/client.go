package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// StatusError vrací klient, pokud backend odpoví jiným než 2xx kódem.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: API vrátilo chybný status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// APIClient zapouzdřuje HTTP volání na REST backend.
// Zbytek agenta neřeší URL adresy, JSON ani status kódy.
type APIClient struct {
	BaseURL    string       // Např. http://192.168.43.195:8080/
	httpClient *http.Client // Vždy s timeoutem, jinak by visela celá smyčka
}

// NewAPIClient vytváří instanci klienta. timeout <= 0 znamená 5 s.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// DevicePath vrací "api/devices/{id}".
func DevicePath(deviceID int) string {
	return "api/devices/" + strconv.Itoa(deviceID)
}

// SensorsPath vrací "api/devices/{id}/sensors", případně s typem senzoru.
func SensorsPath(deviceID int, sensorType string) string {
	return withType(DevicePath(deviceID)+"/sensors", sensorType)
}

// ActuatorsPath vrací "api/devices/{id}/actuators", případně s typem aktuátoru.
func ActuatorsPath(deviceID int, actuatorType string) string {
	return withType(DevicePath(deviceID)+"/actuators", actuatorType)
}

const (
	SensorValuesPath   = "api/sensor_values"
	ActuatorStatesPath = "api/actuator_states"
)

func withType(path, typ string) string {
	if typ == "" {
		return path
	}
	return path + "/" + url.PathEscape(typ)
}

// GetDevice zavolá GET api/devices/{id}.
func (c *APIClient) GetDevice(ctx context.Context, deviceID int) (Device, error) {
	var d Device
	err := c.do(ctx, http.MethodGet, DevicePath(deviceID), nil, &d)
	return d, err
}

// GetDevices načte n zařízení s po sobě jdoucími ID počínaje first.
// Chyba u jednoho zařízení nezastaví ostatní, vrací se všechny úspěšně načtené.
func (c *APIClient) GetDevices(ctx context.Context, first, n int) ([]Device, error) {
	devices := make([]Device, 0, n)
	var errs []error
	for id := first; id < first+n; id++ {
		d, err := c.GetDevice(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		devices = append(devices, d)
	}
	return devices, errors.Join(errs...)
}

// PutDevice zavolá PUT api/devices/{id} s popisem zařízení.
func (c *APIClient) PutDevice(ctx context.Context, deviceID int, d Device) error {
	return c.do(ctx, http.MethodPut, DevicePath(deviceID), d, nil)
}

// GetSensors vrací senzory zařízení. Prázdný sensorType = všechny.
func (c *APIClient) GetSensors(ctx context.Context, deviceID int, sensorType string) ([]Sensor, error) {
	var sensors []Sensor
	err := c.do(ctx, http.MethodGet, SensorsPath(deviceID, sensorType), nil, &sensors)
	return sensors, err
}

// GetActuators vrací aktuátory zařízení. Prázdný actuatorType = všechny.
func (c *APIClient) GetActuators(ctx context.Context, deviceID int, actuatorType string) ([]Actuator, error) {
	var actuators []Actuator
	err := c.do(ctx, http.MethodGet, ActuatorsPath(deviceID, actuatorType), nil, &actuators)
	return actuators, err
}

// PostSensorValue odešle jedno měření.
func (c *APIClient) PostSensorValue(ctx context.Context, v SensorValue) error {
	return c.do(ctx, http.MethodPost, SensorValuesPath, v, nil)
}

// PostActuatorStatus odešle stav aktuátoru.
func (c *APIClient) PostActuatorStatus(ctx context.Context, s ActuatorStatus) error {
	return c.do(ctx, http.MethodPost, ActuatorStatesPath, s, nil)
}

// do provede jeden request. body (pokud není nil) se serializuje do JSONu,
// odpověď se dekóduje do out (pokud není nil).
func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("serializace %T: %w", body, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+"/"+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chyba sítě při volání API %s %s: %w", method, path, err)
	}
	// Body musíme vždy zavřít, jinak tečou spojení.
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		// Odpověď nás nezajímá, ale dočteme ji, aby šlo spojení znovu použít.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chyba při parsování JSONu z %s: %w", path, err)
	}
	return nil
}
