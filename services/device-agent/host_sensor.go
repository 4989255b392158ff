package main

import (
	"context"
	"errors"

	// gopsutil čte teploty z /sys/class/hwmon a thermal zón (Linux, RPi).
	"github.com/shirou/gopsutil/v3/host"
)

// temperatureReader umožňuje v testech podstrčit vlastní zdroj teplot.
type temperatureReader func(ctx context.Context) ([]host.TemperatureStat, error)

// HostTemperature vrací nejvyšší teplotu, kterou deska hlásí (°C).
// Funguje jako "teplotní čidlo" profilu se zdrojem host_temperature.
func HostTemperature(ctx context.Context) (float64, error) {
	return hostTemperature(ctx, host.SensorsTemperaturesWithContext)
}

func hostTemperature(ctx context.Context, read temperatureReader) (float64, error) {
	stats, err := read(ctx)
	// gopsutil vrací i částečné výsledky spolu s varováním, ty bereme.
	if len(stats) == 0 {
		if err == nil {
			err = errors.New("deska nehlásí žádné teplotní čidlo")
		}
		return 0, err
	}

	hottest := stats[0].Temperature
	for _, s := range stats[1:] {
		if s.Temperature > hottest {
			hottest = s.Temperature
		}
	}
	return hottest, nil
}
