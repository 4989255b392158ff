package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Zdroje hodnoty senzoru.
const (
	SourceDigital         = "digital"
	SourceAnalog          = "analog"
	SourceHostTemperature = "host_temperature"
)

// Režimy odesílání měření.
const (
	ReportAlways    = "always"     // POST v každém tiku, kdy se měří
	ReportOnTrigger = "on_trigger" // POST jen když hodnota překročí práh
)

// NoPin označuje nepoužitý pin.
const NoPin = -1

// Profile drží vše, čím se od sebe lišily dvě verze firmwaru:
// čísla pinů, práh, ID senzoru/aktuátoru a drobnosti v chování smyčky.
type Profile struct {
	Name string `yaml:"name"`

	SensorSource string  `yaml:"sensor_source"`
	SensorPin    int     `yaml:"sensor_pin"`
	Threshold    float64 `yaml:"threshold"` // hodnota > práh = sepnuto

	// ActuatorPin jde při sepnutí do HIGH, ComplementPin (pokud je) do LOW.
	ActuatorPin   int `yaml:"actuator_pin"`
	ComplementPin int `yaml:"complement_pin"`

	// Diagnostika: v sekundách, kde sekunda minuty % DiagEverySeconds == 0
	// (pro 50 to jsou sekundy 0 a 50), se zaloguje analogový a digitální pin.
	AnalogDiagPin    int `yaml:"analog_diag_pin"`
	DigitalDiagPin   int `yaml:"digital_diag_pin"`
	DiagEverySeconds int `yaml:"diag_every_seconds"`

	Report         string `yaml:"report"`
	OddSecondsOnly bool   `yaml:"odd_seconds_only"`

	// Výchozí ID v backendu. SensorID se za běhu ověřuje proti API.
	SensorID     int    `yaml:"sensor_id"`
	ActuatorID   int    `yaml:"actuator_id"`
	SensorType   string `yaml:"sensor_type"`
	ActuatorType string `yaml:"actuator_type"`
}

var builtinProfiles = map[string]Profile{
	// Digitální senzor, dvojice pinů (bílá/modrá LED), měří jen v lichých sekundách
	// a hlásí jen sepnutí.
	"esp8266": {
		Name:             "esp8266",
		SensorSource:     SourceDigital,
		SensorPin:        0,
		Threshold:        0,
		ActuatorPin:      15,
		ComplementPin:    16,
		AnalogDiagPin:    34,
		DigitalDiagPin:   13,
		DiagEverySeconds: 50,
		Report:           ReportOnTrigger,
		OddSecondsOnly:   true,
		SensorID:         18,
		ActuatorID:       1,
	},
	// Analogové teplotní čidlo s prahem, relé na jednom pinu, hlásí vždy.
	"esp32": {
		Name:             "esp32",
		SensorSource:     SourceAnalog,
		SensorPin:        34,
		Threshold:        2048,
		ActuatorPin:      15,
		ComplementPin:    NoPin,
		AnalogDiagPin:    NoPin,
		DigitalDiagPin:   13,
		DiagEverySeconds: 50,
		Report:           ReportAlways,
		SensorID:         18,
		ActuatorID:       1,
		SensorType:       "Temperature",
		ActuatorType:     "Relay",
	},
}

// BuiltinProfile vrací vestavěný profil podle jména.
func BuiltinProfile(name string) (Profile, error) {
	p, ok := builtinProfiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("neznámý profil %q (esp8266 | esp32)", name)
	}
	return p, nil
}

// LoadProfile načte YAML soubor přes základní profil.
// V souboru stačí uvést jen klíče, které se mají změnit.
func LoadProfile(path string, base Profile) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	p := base
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("profil %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profil %s: %w", path, err)
	}
	return p, nil
}

// ResolveProfile složí profil z konfigurace: vestavěný + volitelný soubor.
func ResolveProfile(cfg Config) (Profile, error) {
	p, err := BuiltinProfile(cfg.Profile)
	if err != nil {
		return Profile{}, err
	}
	if cfg.ProfileFile != "" {
		return LoadProfile(cfg.ProfileFile, p)
	}
	return p, p.Validate()
}

// Validate kontroluje, že profil dává smysl.
func (p Profile) Validate() error {
	switch p.SensorSource {
	case SourceDigital, SourceAnalog:
		if p.SensorPin < 0 {
			return fmt.Errorf("sensor_pin musí být >= 0 pro zdroj %s", p.SensorSource)
		}
	case SourceHostTemperature:
	default:
		return fmt.Errorf("neznámý sensor_source %q", p.SensorSource)
	}
	switch p.Report {
	case ReportAlways, ReportOnTrigger:
	default:
		return fmt.Errorf("neznámý report %q", p.Report)
	}
	if p.ActuatorPin < 0 {
		return fmt.Errorf("actuator_pin musí být >= 0")
	}
	optional := []struct {
		name string
		pin  int
	}{
		{"complement_pin", p.ComplementPin},
		{"analog_diag_pin", p.AnalogDiagPin},
		{"digital_diag_pin", p.DigitalDiagPin},
	}
	for _, o := range optional {
		if o.pin < 0 && o.pin != NoPin {
			return fmt.Errorf("%s musí být >= 0 nebo %d (nepoužit)", o.name, NoPin)
		}
	}
	if p.DiagEverySeconds < 0 {
		return fmt.Errorf("diag_every_seconds nesmí být záporné")
	}
	return nil
}
