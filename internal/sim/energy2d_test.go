package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/labsim/internal/dynamo"
	"github.com/san-kum/labsim/internal/sim"
)

func plate() sim.Description {
	return sim.Description{
		"type":         "energy2d",
		"timeStep":     1,
		"model_width":  10,
		"model_height": 10,
		"structure": map[string]any{
			"part": []any{
				map[string]any{
					"shapeType":   "rectangle",
					"x":           1,
					"y":           2,
					"width":       3,
					"height":      4,
					"temperature": 5,
				},
			},
		},
		"sensors": []any{
			map[string]any{"type": "thermometer", "x": 1, "y": 2},
			map[string]any{"type": "anemometer", "x": 1, "y": 2, "angle": 90},
		},
	}
}

var _ = Describe("Energy2D model serialization after changes", func() {
	var (
		model   *sim.Model
		orgJSON sim.Description
	)

	part := func(d sim.Description) map[string]any {
		return d["structure"].(map[string]any)["part"].([]map[string]any)[0]
	}
	sensor := func(d sim.Description, i int) map[string]any {
		return d["sensors"].([]map[string]any)[i]
	}

	BeforeEach(func() {
		var err error
		model, err = sim.New(plate())
		Expect(err).NotTo(HaveOccurred())
		orgJSON = model.Serialize()
	})

	It("serializes the construction input shape", func() {
		Expect(part(orgJSON)).To(Equal(map[string]any{
			"shapeType": "rectangle", "x": 1.0, "y": 2.0, "width": 3.0, "height": 4.0, "temperature": 5.0,
		}))
		Expect(sensor(orgJSON, 0)).To(Equal(map[string]any{"type": "thermometer", "x": 1.0, "y": 2.0}))
		Expect(sensor(orgJSON, 1)).To(Equal(map[string]any{"type": "anemometer", "x": 1.0, "y": 2.0, "angle": 90.0}))
		Expect(orgJSON).NotTo(HaveKey("field"))
		Expect(model.TimeUnit()).To(Equal("s"))
	})

	It("reflects top-level property changes", func() {
		Expect(model.Set("timeStep", 1)).To(Succeed())
		Expect(model.Serialize()).To(Equal(orgJSON))

		Expect(model.Set("background_temperature", 20)).To(Succeed())
		orgJSON["background_temperature"] = 20.0
		Expect(model.Serialize()).To(Equal(orgJSON))
	})

	It("reflects changes to parts", func() {
		p := part(orgJSON)
		for field, v := range map[string]float64{"x": 3, "y": 5, "width": 2, "height": 2, "temperature": 15} {
			Expect(model.SetField("parts", 0, field, v)).To(Succeed())
			p[field] = v
		}
		Expect(model.Serialize()).To(Equal(orgJSON))
		Expect(model.Parts()[0]["temperature"]).To(Equal(15.0))
	})

	It("reflects changes to sensors", func() {
		Expect(model.SetField("sensors", 0, "x", 3)).To(Succeed())
		Expect(model.SetField("sensors", 1, "y", 7)).To(Succeed())
		sensor(orgJSON, 0)["x"] = 3.0
		sensor(orgJSON, 1)["y"] = 7.0
		Expect(model.Serialize()).To(Equal(orgJSON))
	})

	It("keeps part shapes immutable", func() {
		Expect(model.SetField("parts", 0, "shapeType", "ellipse")).To(MatchError(dynamo.ErrSchemaMismatch))
	})

	It("rejects unknown sensor types", func() {
		err := model.CreateRows("sensors", map[string]any{"type": []any{"barometer"}, "x": []any{0}, "y": []any{0}})
		Expect(err).To(MatchError(dynamo.ErrInvalidValue))
	})

	Describe("readings", func() {
		It("reads the temperature under a thermometer", func() {
			sensors := model.Sensors()
			Expect(sensors).To(HaveLen(2))
			Expect(sensors[0].Reading).To(Equal(5.0))
			Expect(sensors[0].Unit).To(Equal("°C"))
			Expect(model.Get("sensorReading")).To(Equal(5.0))

			d, _ := model.PropertyDescription("sensorReading")
			Expect(d.Unit).To(Equal("°C"))
		})

		It("follows part changes before the field evolves", func() {
			Expect(model.SetField("parts", 0, "temperature", 40)).To(Succeed())
			Expect(model.Get("sensorReading")).To(Equal(40.0))
		})

		It("updates the reading description when the first sensor appears", func() {
			d := plate()
			delete(d, "sensors")
			m, err := sim.New(d)
			Expect(err).NotTo(HaveOccurred())

			fired := 0
			m.AddPropertyDescriptionObserver("sensorReading", func() error { fired++; return nil })
			Expect(m.CreateRows("sensors", map[string]any{"type": []any{"heatFluxSensor"}, "x": []any{5}, "y": []any{5}})).To(Succeed())
			Expect(fired).To(Equal(1))

			desc, _ := m.PropertyDescription("sensorReading")
			Expect(desc.Unit).To(Equal("W/m²"))
		})
	})

	Describe("stepping", func() {
		It("diffuses heat and serializes the evolved field", func() {
			avg, _ := model.Get("averageTemperature")
			maxT, _ := model.Get("maxTemperature")
			Expect(model.Tick()).To(Succeed())

			Expect(model.Get("maxTemperature")).To(BeNumerically("<", maxT))
			Expect(model.Get("averageTemperature")).To(BeNumerically("~", avg, 1e-9))

			d := model.Serialize()
			Expect(d).To(HaveKey("field"))
			Expect(d["time"]).To(Equal(1.0))
			expectEquivalent(model, roundTrip(model))
		})

		It("keeps an evolved field when parts move", func() {
			Expect(model.Tick()).To(Succeed())
			before, _ := model.Get("averageTemperature")
			Expect(model.SetField("parts", 0, "x", 5)).To(Succeed())
			Expect(model.Get("averageTemperature")).To(Equal(before))
			expectEquivalent(model, roundTrip(model))
		})

		It("steps back to the painted field", func() {
			Expect(model.Tick()).To(Succeed())
			Expect(model.StepBack()).To(Succeed())
			Expect(model.Serialize()).To(Equal(orgJSON))
			Expect(model.Get("sensorReading")).To(Equal(5.0))
		})

		It("steps back to the evolved field after the grid is resized", func() {
			Expect(model.Tick()).To(Succeed())
			afterFirst := model.Serialize()
			avg, _ := model.Get("averageTemperature")

			Expect(model.Tick()).To(Succeed())
			Expect(model.Set("grid_width", 60)).To(Succeed())
			_, err := model.Get("averageTemperature")
			Expect(err).NotTo(HaveOccurred())

			Expect(model.StepBack()).To(Succeed())
			Expect(model.Serialize()).To(Equal(afterFirst))
			Expect(model.Get("averageTemperature")).To(Equal(avg))
		})
	})
})
