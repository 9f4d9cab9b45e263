package sim_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/labsim/internal/dynamo"
	"github.com/san-kum/labsim/internal/property"
	"github.com/san-kum/labsim/internal/sim"
)

func gas() sim.Description {
	return sim.Description{
		"width":  5,
		"height": 5,
		"atoms": map[string]any{
			"x":  []any{1.0, 1.4, 2.0},
			"y":  []any{1.0, 1.0, 1.3},
			"vx": []any{0.001, -0.001, 0.0},
			"vy": []any{0.0, 0.0005, -0.001},
		},
	}
}

var _ = Describe("Model", func() {
	var model *sim.Model

	BeforeEach(func() {
		var err error
		model, err = sim.New(gas())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("construction", func() {
		It("defaults to md2d in femtoseconds", func() {
			Expect(model.Kind()).To(Equal(sim.KindMD2D))
			Expect(model.TimeUnit()).To(Equal("fs"))
			Expect(model.IsStopped()).To(BeTrue())
			Expect(model.Get("numAtoms")).To(Equal(3.0))
		})

		It("rejects unknown parameters", func() {
			_, err := sim.New(sim.Description{"viscosity": 1})
			Expect(err).To(MatchError(dynamo.ErrUnknownProperty))
		})

		It("rejects invalid parameter values", func() {
			_, err := sim.New(sim.Description{"timeStep": -1})
			Expect(err).To(MatchError(dynamo.ErrInvalidValue))
		})

		It("rejects unknown model types", func() {
			_, err := sim.New(sim.Description{"type": "sph"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("setting parameters", func() {
		It("is all-or-nothing", func() {
			err := model.SetAll(map[string]any{"width": 20, "timeStep": -1})
			Expect(err).To(MatchError(dynamo.ErrInvalidValue))

			var ive *dynamo.InvalidValueError
			Expect(errors.As(err, &ive)).To(BeTrue())
			Expect(ive.Property).To(Equal("timeStep"))
			Expect(model.Get("width")).To(Equal(5.0))
			Expect(model.Get("timeStep")).To(Equal(1.0))
		})

		It("rejects writes to outputs", func() {
			Expect(model.Set("kineticEnergy", 1)).To(MatchError(dynamo.ErrInvalidValue))
		})

		It("rejects redefinition", func() {
			err := model.DefineParameter("width", property.Description{}, nil, 1)
			Expect(err).To(MatchError(dynamo.ErrDuplicateDefinition))
		})

		It("reports observer failures after committing", func() {
			calls := 0
			model.AddObserver("width", func() error { return errors.New("boom") })
			model.AddObserver("width", func() error { calls++; return nil })

			err := model.Set("width", 6)
			var obsErr *property.ObserverError
			Expect(errors.As(err, &obsErr)).To(BeTrue())
			Expect(calls).To(Equal(1))
			Expect(model.Get("width")).To(Equal(6.0))
		})
	})

	Describe("history", func() {
		It("steps back to the pre-tick state", func() {
			before := model.Serialize()
			Expect(model.Tick()).To(Succeed())
			Expect(model.Time()).To(Equal(1.0))
			Expect(model.Serialize()).NotTo(Equal(before))

			Expect(model.StepBack()).To(Succeed())
			Expect(model.Time()).To(Equal(0.0))
			Expect(model.Serialize()).To(Equal(before))
			Expect(model.State()).To(Equal(sim.Stopped))
		})

		It("treats stepping back with no history as a no-op", func() {
			before := model.Serialize()
			Expect(model.HistoryDepth()).To(Equal(0))
			Expect(model.StepBack()).To(Succeed())
			Expect(model.Serialize()).To(Equal(before))
		})

		It("advances time by timeStep times timeStepsPerTick", func() {
			Expect(model.SetAll(map[string]any{"timeStep": 0.5, "timeStepsPerTick": 4})).To(Succeed())
			Expect(model.Tick()).To(Succeed())
			Expect(model.Time()).To(Equal(2.0))
		})

		It("does not record the start state twice", func() {
			Expect(model.Start()).To(Succeed())
			Expect(model.HistoryDepth()).To(Equal(1))
			Expect(model.Tick()).To(Succeed())
			Expect(model.HistoryDepth()).To(Equal(1))
			Expect(model.Tick()).To(Succeed())
			Expect(model.HistoryDepth()).To(Equal(2))
		})

		It("is bounded", func() {
			m, err := sim.New(gas(), sim.WithHistoryDepth(3))
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 5; i++ {
				Expect(m.Tick()).To(Succeed())
			}
			Expect(m.HistoryDepth()).To(Equal(3))
			for i := 0; i < 5; i++ {
				Expect(m.StepBack()).To(Succeed())
			}
			Expect(m.Time()).To(Equal(2.0))
		})

		It("resets to the initial state", func() {
			initial := model.Serialize()
			Expect(model.Start()).To(Succeed())
			for i := 0; i < 3; i++ {
				Expect(model.Tick()).To(Succeed())
			}
			Expect(model.Set("width", 7)).To(Succeed())

			Expect(model.Reset()).To(Succeed())
			Expect(model.Time()).To(Equal(0.0))
			Expect(model.IsStopped()).To(BeTrue())
			Expect(model.HistoryDepth()).To(Equal(1))
			Expect(model.Serialize()).To(Equal(initial))
		})
	})

	Describe("state machine", func() {
		It("moves between stopped and running", func() {
			var events []sim.Event
			for _, ev := range []sim.Event{sim.EventStart, sim.EventStop, sim.EventTick, sim.EventStepBack, sim.EventReset, sim.EventInvalidation} {
				ev := ev
				model.On(ev, func() { events = append(events, ev) })
			}

			Expect(model.Start()).To(Succeed())
			Expect(model.State()).To(Equal(sim.Running))
			Expect(model.Tick()).To(Succeed())
			model.Stop()
			Expect(model.StepBack()).To(Succeed())
			Expect(model.Set("width", 6)).To(Succeed())
			Expect(model.Reset()).To(Succeed())

			Expect(events).To(Equal([]sim.Event{
				sim.EventStart, sim.EventTick, sim.EventStop, sim.EventStepBack,
				sim.EventInvalidation, sim.EventReset,
			}))
		})

		It("freezes per-run values at start", func() {
			Expect(model.Start()).To(Succeed())
			Expect(model.Set("width", 8)).To(Succeed())
			v, ok := model.Baseline("width")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(5.0))
		})
	})

	Describe("fatal integration errors", func() {
		BeforeEach(func() {
			var err error
			model, err = sim.New(sim.Description{"atoms": map[string]any{"x": []any{1, 1}, "y": []any{1, 1}}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("halts the model and keeps the last good state", func() {
			before := model.Serialize()
			err := model.Tick()
			Expect(err).To(MatchError(dynamo.ErrFatalIntegration))

			var fe *dynamo.FatalIntegrationError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(model.Serialize()).To(Equal(before))

			Expect(model.Tick()).To(MatchError(dynamo.ErrHalted))
			Expect(model.Start()).To(MatchError(dynamo.ErrHalted))

			Expect(model.Reset()).To(Succeed())
			Expect(model.Halted()).NotTo(HaveOccurred())
		})
	})

	Describe("outputs", func() {
		It("recomputes time-dependent outputs after a tick", func() {
			ke, _ := model.Get("kineticEnergy")
			fired := 0
			model.AddObserver("kineticEnergy", func() error { fired++; return nil })

			Expect(model.Tick()).To(Succeed())
			Expect(fired).To(Equal(1))
			Expect(model.Get("kineticEnergy")).NotTo(Equal(ke))
		})

		It("supports caller-defined outputs", func() {
			Expect(model.DefineOutput("doubleWidth", property.Description{Unit: "nm"}, []string{"width"}, func() any {
				w, _ := model.Get("width")
				return 2 * w.(float64)
			})).To(Succeed())
			Expect(model.Set("width", 4)).To(Succeed())
			Expect(model.Get("doubleWidth")).To(Equal(8.0))
		})

		It("lists every property in definition order", func() {
			props := model.Properties()
			Expect(props[0].Name).To(Equal("width"))
			Expect(props[0].Kind).To(Equal(property.KindParameter))

			d, err := model.PropertyDescription("temperature")
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Unit).To(Equal("K"))
		})
	})

	Describe("the thermostat", func() {
		It("holds the target temperature", func() {
			Expect(model.SetAll(map[string]any{"temperatureControl": true, "targetTemperature": 150})).To(Succeed())
			Expect(model.Tick()).To(Succeed())
			Expect(model.Get("temperature")).To(BeNumerically("~", 150, 1e-6))
		})
	})
})
