package main

// DTO struktury pro REST backend.
// Názvy JSON klíčů jsou kontrakt s backendem (camelCase), nesmí se měnit.
// Pole s "omitempty" přiděluje server, při odesílání je necháváme prázdná.

// SensorValue je jedno měření senzoru (POST api/sensor_values).
type SensorValue struct {
	IDSensorValue int     `json:"idSensorValue,omitempty"`
	IDSensor      int     `json:"idSensor"`
	Timestamp     int64   `json:"timestamp"`
	Value         float64 `json:"value"`
	Removed       bool    `json:"removed"`
}

// ActuatorStatus je stav aktuátoru (POST api/actuator_states).
type ActuatorStatus struct {
	IDActuatorState int     `json:"idActuatorState,omitempty"`
	Status          float64 `json:"status"`
	StatusBinary    bool    `json:"statusBinary"`
	IDActuator      int     `json:"idActuator"`
	Timestamp       int64   `json:"timestamp"`
	Removed         bool    `json:"removed"`
}

// Device popisuje zařízení (GET/PUT api/devices/{id}).
type Device struct {
	IDDevice       int    `json:"idDevice,omitempty"`
	DeviceSerialID string `json:"deviceSerialId"`
	Name           string `json:"name"`
	MQTTChannel    string `json:"mqttChannel"`
	IDGroup        int    `json:"idGroup"`
}

// Sensor je senzor registrovaný k zařízení (jen čtení).
type Sensor struct {
	IDSensor   int    `json:"idSensor"`
	Name       string `json:"name"`
	SensorType string `json:"sensorType"`
	IDDevice   int    `json:"idDevice"`
}

// Actuator je aktuátor registrovaný k zařízení (jen čtení).
type Actuator struct {
	IDActuator   int    `json:"idActuator"`
	Name         string `json:"name"`
	ActuatorType string `json:"actuatorType"`
	IDDevice     int    `json:"idDevice"`
}
