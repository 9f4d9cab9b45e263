package physics

import (
	"fmt"
	"math"
)

const (
	Thermometer    = "thermometer"
	Anemometer     = "anemometer"
	HeatFluxSensor = "heatFluxSensor"
)

var SensorTypes = []string{Thermometer, Anemometer, HeatFluxSensor}

// SensorUnit is the unit a sensor of the given type reports in.
func SensorUnit(kind string) string {
	switch kind {
	case Thermometer:
		return "°C"
	case Anemometer:
		return "m/s"
	case HeatFluxSensor:
		return "W/m²"
	}
	return ""
}

// ReadSensor samples the field t at (x, y). Heat flux is measured along the
// sensor normal given by angle in degrees. The grid has no fluid flow, so
// anemometers always read zero.
func ReadSensor(g *HeatGrid, t []float64, kind string, x, y, angle float64) (float64, error) {
	switch kind {
	case Thermometer:
		i, j := g.Cell(x, y)
		return t[j*g.NX+i], nil
	case Anemometer:
		return 0, nil
	case HeatFluxSensor:
		i, j := g.Cell(x, y)
		gx, gy := g.Gradient(t, x, y)
		rad := angle * math.Pi / 180
		return -g.K[j*g.NX+i] * (gx*math.Cos(rad) + gy*math.Sin(rad)), nil
	}
	return 0, fmt.Errorf("unknown sensor type %q", kind)
}
