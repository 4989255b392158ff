package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer napodobuje REST backend.
type fakeServer struct {
	requestedTypes []string
	bodies         map[string]string
}

func newFakeServer(t *testing.T) (*httptest.Server, *fakeServer) {
	t.Helper()
	fs := &fakeServer{bodies: make(map[string]string)}

	writeJSON := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
	storeBody := func(key string, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		fs.bodies[key] = string(b)
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] != "124" {
			http.Error(w, "no such device", http.StatusNotFound)
			return
		}
		writeJSON(w, `{"idDevice":124,"deviceSerialId":"124","name":"Device number 124","mqttChannel":"mqttChannelDevice1","idGroup":7}`)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
		storeBody("PUT "+r.URL.Path, r)
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPut)
	r.HandleFunc("/api/devices/{id}/sensors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"idSensor":18,"name":"s1","sensorType":"Temperature","idDevice":124},{"idSensor":21,"name":"s2","sensorType":"Humidity","idDevice":124}]`)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/devices/{id}/sensors/{type}", func(w http.ResponseWriter, r *http.Request) {
		fs.requestedTypes = append(fs.requestedTypes, mux.Vars(r)["type"])
		writeJSON(w, `[{"idSensor":18,"name":"s1","sensorType":"Temperature","idDevice":124}]`)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/devices/{id}/actuators/{type}", func(w http.ResponseWriter, r *http.Request) {
		fs.requestedTypes = append(fs.requestedTypes, mux.Vars(r)["type"])
		writeJSON(w, `[{"idActuator":1,"name":"relay","actuatorType":"Relay","idDevice":124}]`)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/sensor_values", func(w http.ResponseWriter, r *http.Request) {
		storeBody("POST "+r.URL.Path, r)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, `{"idSensorValue":99}`)
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/actuator_states", func(w http.ResponseWriter, r *http.Request) {
		storeBody("POST "+r.URL.Path, r)
		w.WriteHeader(http.StatusCreated)
	}).Methods(http.MethodPost)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, fs
}

func TestPathsUseDeviceID(t *testing.T) {
	assert.Equal(t, "api/devices/124", DevicePath(124))
	assert.Equal(t, "api/devices/124/sensors", SensorsPath(124, ""))
	assert.Equal(t, "api/devices/124/sensors/Temperature", SensorsPath(124, "Temperature"))
	assert.Equal(t, "api/devices/7/actuators", ActuatorsPath(7, ""))
	assert.Equal(t, "api/devices/7/actuators/Relay", ActuatorsPath(7, "Relay"))
	assert.Equal(t, "api/devices/7/sensors/Air%20Quality", SensorsPath(7, "Air Quality"))
}

func TestGetDevice(t *testing.T) {
	srv, _ := newFakeServer(t)
	client := NewAPIClient(srv.URL+"/", time.Second)

	d, err := client.GetDevice(context.Background(), 124)
	require.NoError(t, err)
	assert.Equal(t, Device{
		IDDevice:       124,
		DeviceSerialID: "124",
		Name:           "Device number 124",
		MQTTChannel:    "mqttChannelDevice1",
		IDGroup:        7,
	}, d)
}

func TestGetDeviceNotFound(t *testing.T) {
	srv, _ := newFakeServer(t)
	client := NewAPIClient(srv.URL, time.Second)

	_, err := client.GetDevice(context.Background(), 1)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "api/devices/1", se.Path)
	assert.Equal(t, "no such device", se.Body)
}

func TestGetDevicesReturnsPartialResult(t *testing.T) {
	srv, _ := newFakeServer(t)
	client := NewAPIClient(srv.URL, time.Second)

	devices, err := client.GetDevices(context.Background(), 124, 5)
	assert.Error(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, 124, devices[0].IDDevice)
}

func TestGetSensorsAndActuators(t *testing.T) {
	srv, fs := newFakeServer(t)
	client := NewAPIClient(srv.URL, time.Second)
	ctx := context.Background()

	all, err := client.GetSensors(ctx, 124, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, Sensor{IDSensor: 21, Name: "s2", SensorType: "Humidity", IDDevice: 124}, all[1])

	typed, err := client.GetSensors(ctx, 124, "Temperature")
	require.NoError(t, err)
	assert.Len(t, typed, 1)

	actuators, err := client.GetActuators(ctx, 124, "Relay")
	require.NoError(t, err)
	require.Len(t, actuators, 1)
	assert.Equal(t, "Relay", actuators[0].ActuatorType)

	assert.Equal(t, []string{"Temperature", "Relay"}, fs.requestedTypes)
}

func TestPutDeviceBody(t *testing.T) {
	srv, fs := newFakeServer(t)
	client := NewAPIClient(srv.URL, time.Second)

	err := client.PutDevice(context.Background(), 124, Device{
		DeviceSerialID: "124",
		Name:           "Device number 7",
		MQTTChannel:    "mqttChannelDevice7",
		IDGroup:        7,
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"deviceSerialId":"124","name":"Device number 7","mqttChannel":"mqttChannelDevice7","idGroup":7}`,
		fs.bodies["PUT /api/devices/124"])
}

func TestPostBodies(t *testing.T) {
	srv, fs := newFakeServer(t)
	client := NewAPIClient(srv.URL, time.Second)
	ctx := context.Background()

	require.NoError(t, client.PostSensorValue(ctx, SensorValue{IDSensor: 18, Timestamp: 1500, Value: 23.5}))
	assert.JSONEq(t,
		`{"idSensor":18,"timestamp":1500,"value":23.5,"removed":false}`,
		fs.bodies["POST /api/sensor_values"])

	require.NoError(t, client.PostActuatorStatus(ctx, ActuatorStatus{Status: 1, StatusBinary: true, IDActuator: 1, Timestamp: 1600}))
	assert.JSONEq(t,
		`{"status":1,"statusBinary":true,"idActuator":1,"timestamp":1600,"removed":false}`,
		fs.bodies["POST /api/actuator_states"])
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewAPIClient(url, 200*time.Millisecond)
	err := client.PostSensorValue(context.Background(), SensorValue{IDSensor: 1})
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestInvalidJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	t.Cleanup(srv.Close)

	_, err := NewAPIClient(srv.URL, time.Second).GetSensors(context.Background(), 124, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsování JSONu")
}
