package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/labsim/internal/sim"
)

// Preset is a named model description with a suggested run length.
type Preset struct {
	Summary string
	Ticks   int
	Model   string // YAML
}

// Description parses the preset's model.
func (p *Preset) Description() (sim.Description, error) {
	return sim.ParseDescription([]byte(p.Model))
}

var Presets = map[string]*Preset{
	"gas": {
		Summary: "argon gas in a 5 nm box",
		Ticks:   500,
		Model: `
type: md2d
width: 5
height: 5
timeStep: 1
timeStepsPerTick: 10
atoms:
  x:  [1.0, 2.0, 3.0, 4.0, 1.5, 2.5, 3.5, 1.0, 2.0, 3.0, 4.0, 2.5]
  y:  [1.0, 1.0, 1.0, 1.0, 2.0, 2.0, 2.0, 3.0, 3.0, 3.0, 3.0, 4.0]
  vx: [0.002, -0.001, 0.0015, -0.002, 0.001, 0.0, -0.0015, 0.0005, -0.0005, 0.002, -0.001, 0.001]
  vy: [0.001, 0.002, -0.001, 0.0, -0.002, 0.0015, 0.001, -0.001, 0.0005, -0.0015, 0.002, -0.0005]
`,
	},
	"excited-gas": {
		Summary: "gas with excited atoms emitting and absorbing photons",
		Ticks:   300,
		Model: `
type: md2d
width: 4
height: 4
quantumDynamics:
  excitationEnergy: 2
  photonSpeed: 0.05
  absorptionRadius: 0.25
atoms:
  x:  [1.0, 2.0, 3.0, 1.5, 2.5]
  y:  [1.0, 1.0, 1.0, 2.5, 2.5]
  vx: [0.001, 0.0, -0.001, 0.0005, -0.0005]
  vy: [0.0, 0.001, 0.0, -0.001, 0.001]
  excitation: [1, 0, 2, 0, 1]
`,
	},
	"hot-plate": {
		Summary: "heat spreading from a fixed-temperature plate",
		Ticks:   100,
		Model: `
type: energy2d
timeStep: 0.5
model_width: 10
model_height: 10
grid_width: 40
grid_height: 40
background_temperature: 20
structure:
  part:
    - shapeType: rectangle
      x: 2
      y: 1
      width: 6
      height: 1
      temperature: 90
      constant_temperature: true
    - shapeType: ellipse
      x: 4
      y: 6
      width: 2
      height: 2
      temperature: 5
      thermal_conductivity: 0.2
sensors:
  - type: thermometer
    x: 5
    y: 3
  - type: heatFluxSensor
    x: 5
    y: 2.5
    angle: 90
`,
	},
}

func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPreset builds the named preset's description.
func LoadPreset(name string) (sim.Description, error) {
	p := GetPreset(name)
	if p == nil {
		return nil, fmt.Errorf("unknown preset %q (have %v)", name, ListPresets())
	}
	return p.Description()
}
