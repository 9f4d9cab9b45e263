package export_test

import (
	"errors"
	"regexp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/labsim/internal/export"
	"github.com/san-kum/labsim/internal/property"
	"github.com/san-kum/labsim/internal/sim"
)

type exportCall struct {
	runLabels  []export.Label
	runValues  []any
	tickLabels []export.Label
	tickValues [][]float64
}

type fakeSink struct {
	can   bool
	fail  error
	calls []exportCall
}

func (s *fakeSink) CanExportData() bool { return s.can }

func (s *fakeSink) ExportData(rl []export.Label, rv []any, tl []export.Label, tv [][]float64) error {
	if s.fail != nil {
		return s.fail
	}
	s.calls = append(s.calls, exportCall{rl, rv, tl, tv})
	return nil
}

type action struct {
	name string
	data map[string]any
}

var spec = export.Spec{
	PerRun:  []string{"perRunParam", "perRunOutput"},
	PerTick: []string{"perTickOutput", "perTickParam"},
}

func loadModel() *sim.Model {
	m, err := sim.New(sim.Description{})
	Expect(err).NotTo(HaveOccurred())

	Expect(m.DefineOutput("perRunOutput",
		property.Description{Label: "per-run output", Unit: "units 1"},
		[]string{"time"}, func() any { return 1 + m.Time() })).To(Succeed())
	Expect(m.DefineOutput("perTickOutput",
		property.Description{Label: "per-tick output", Unit: "units 2"},
		[]string{"time"}, func() any { return 2 + m.Time() })).To(Succeed())
	Expect(m.DefineParameter("perRunParam",
		property.Description{Label: "per-run parameter", Unit: "units 3"},
		property.Number(), 0)).To(Succeed())
	Expect(m.DefineParameter("perTickParam",
		property.Description{Label: "per-tick parameter", Unit: "units 4"},
		property.Number(), 0)).To(Succeed())

	Expect(m.SetAll(map[string]any{
		"timeStep":         1,
		"timeStepsPerTick": 1,
		"perRunParam":      10,
		"perTickParam":     20,
	})).To(Succeed())
	return m
}

var _ = Describe("Export controller events", func() {
	It("reports canExportData when the sink connects after initialization", func() {
		sink := &fakeSink{}
		c := export.New(spec, sink)

		var got []bool
		c.OnCanExportData(func(ok bool) { got = append(got, ok) })

		sink.can = true
		c.SinkConnected()
		Expect(got).To(Equal([]bool{true}))
		Expect(c.CanExportData()).To(BeTrue())
	})
})

var _ = Describe("Export controller", func() {
	var (
		sink    *fakeSink
		actions []action
		c       *export.Controller
		model   *sim.Model
	)

	BeforeEach(func() {
		sink = &fakeSink{can: true}
		actions = nil
		c = export.New(spec, sink, export.WithActionLog(func(name string, data map[string]any) {
			actions = append(actions, action{name, data})
		}))
		model = loadModel()
		Expect(c.ModelLoaded(model, "initialLoad")).To(Succeed())
	})

	matching := func(pattern string) []action {
		re := regexp.MustCompile(pattern)
		var out []action
		for _, a := range actions {
			if re.MatchString(a.name) {
				out = append(out, a)
			}
		}
		return out
	}

	Describe("when ExportData is called", func() {
		var call exportCall

		BeforeEach(func() {
			Expect(c.ExportData()).To(Succeed())
			Expect(sink.calls).To(HaveLen(1))
			call = sink.calls[0]
		})

		It("passes the per-run parameters followed by the per-run outputs, with labels and units", func() {
			Expect(call.runLabels).To(Equal([]export.Label{
				{Name: "per-run parameter", Unit: "units 3"},
				{Name: "per-run output", Unit: "units 1"},
			}))
		})

		It("passes the per-run values", func() {
			Expect(call.runValues).To(Equal([]any{10.0, 1.0}))
		})

		It("passes Time followed by the per-tick properties", func() {
			Expect(call.tickLabels).To(Equal([]export.Label{
				{Name: "Time", Unit: "fs"},
				{Name: "per-tick output", Unit: "units 2"},
				{Name: "per-tick parameter", Unit: "units 4"},
			}))
		})

		It("passes the time series", func() {
			Expect(call.tickValues).To(Equal([][]float64{{0, 2, 20}}))
		})
	})

	It("does not log a failed export", func() {
		sink.fail = errors.New("offline")
		Expect(c.ExportData()).To(MatchError(ContainSubstring("offline")))
		Expect(actions).To(BeEmpty())
	})

	Describe("effect of stepping the model", func() {
		exportedTimePoints := func() []float64 {
			Expect(c.ExportData()).To(Succeed())
			var times []float64
			for _, p := range sink.calls[len(sink.calls)-1].tickValues {
				times = append(times, p[0])
			}
			return times
		}

		It("adds a data point per tick", func() {
			Expect(model.Tick()).To(Succeed())
			Expect(exportedTimePoints()).To(Equal([]float64{0, 1}))
		})

		It("keeps a single data point after reset", func() {
			Expect(model.Tick()).To(Succeed())
			Expect(model.Reset()).To(Succeed())
			Expect(exportedTimePoints()).To(Equal([]float64{0}))
		})

		It("hides but keeps data points on step back", func() {
			Expect(model.Tick()).To(Succeed())
			Expect(model.Tick()).To(Succeed())
			Expect(model.StepBack()).To(Succeed())
			Expect(exportedTimePoints()).To(Equal([]float64{0, 1}))
		})

		It("replaces the future after a step back and a tick", func() {
			Expect(model.Tick()).To(Succeed())
			Expect(model.StepBack()).To(Succeed())
			Expect(model.Set("perTickParam", 30)).To(Succeed())
			Expect(model.Tick()).To(Succeed())

			Expect(c.ExportData()).To(Succeed())
			Expect(sink.calls[0].tickValues).To(Equal([][]float64{{0, 2, 30}, {1, 3, 30}}))
		})

		It("drops the popped point on an invalidating change after a step back", func() {
			Expect(model.Tick()).To(Succeed())
			Expect(model.StepBack()).To(Succeed())
			Expect(model.Set("gravitationalField", 0)).To(Succeed())
			Expect(exportedTimePoints()).To(Equal([]float64{0}))
		})
	})

	Describe("event logging", func() {
		It("logs SetUpNewRun after a reload with cause new-run", func() {
			actions = nil
			Expect(c.ModelLoaded(loadModel(), export.CauseNewRun)).To(Succeed())
			Expect(actions).To(HaveLen(1))
			Expect(actions[0].name).To(MatchRegexp("^SetUpNewRun"))
		})

		It("ignores events from a replaced model", func() {
			old := model
			Expect(c.ModelLoaded(loadModel(), "reload")).To(Succeed())
			Expect(old.Tick()).To(Succeed())
			Expect(c.Series().Len()).To(Equal(1))
		})

		Describe("after ExportData is called", func() {
			BeforeEach(func() {
				Expect(c.ExportData()).To(Succeed())
			})

			It("logs ExportedModel with the per-run values", func() {
				Expect(actions).To(HaveLen(1))
				Expect(actions[0].name).To(MatchRegexp("^ExportedModel"))
				Expect(actions[0].data).To(Equal(map[string]any{
					"per-run parameter (units 3)": 10.0,
					"per-run output (units 1)":    1.0,
				}))
			})
		})

		Describe("after the model runs and a parameter changes", func() {
			BeforeEach(func() {
				Expect(model.Start()).To(Succeed())
				model.Stop()
				Expect(model.Set("perRunParam", 11)).To(Succeed())
				Expect(c.ExportData()).To(Succeed())
			})

			It("logs ParameterChange once", func() {
				Expect(matching("^ParameterChange")).To(HaveLen(1))
			})

			It("lists the changed parameters", func() {
				Expect(matching("^ParameterChange")[0].data).To(Equal(map[string]any{
					"per-run parameter (units 3) changed?":        true,
					"per-run parameter (units 3) (start of run)":  10.0,
					"per-run parameter (units 3) (sent to CODAP)": 11.0,
					"per-run output (units 1) changed?":           false,
					"per-run output (units 1) (start of run)":     1.0,
					"per-run output (units 1) (sent to CODAP)":    1.0,
				}))
			})

			It("does not repeat the change on the next export", func() {
				Expect(c.ExportData()).To(Succeed())
				Expect(matching("^ParameterChange")).To(HaveLen(1))
			})
		})

		It("reflects a per-tick parameter updated before the run starts", func() {
			Expect(model.Set("perTickParam", 123)).To(Succeed())
			Expect(model.Start()).To(Succeed())
			model.Stop()
			Expect(c.ExportData()).To(Succeed())
			Expect(sink.calls[0].tickValues).To(Equal([][]float64{{0, 2, 123}}))
		})
	})

	It("samples a reattached model once per tick", func() {
		Expect(c.Attach(model)).To(Succeed())
		Expect(model.Tick()).To(Succeed())
		Expect(c.Series().Points).To(Equal([][]float64{{0, 2, 20}, {1, 3, 20}}))
	})

	It("uses the run baseline of the export list when nothing is tagged per-run", func() {
		Expect(model.Start()).To(Succeed())
		model.Stop()
		_, tagged := model.Baseline("perRunParam")
		Expect(tagged).To(BeFalse())

		Expect(model.Set("perRunParam", 11)).To(Succeed())
		Expect(c.ExportData()).To(Succeed())
		Expect(matching("^ParameterChange")).To(HaveLen(1))
		Expect(matching("^ParameterChange")[0].data).To(HaveKeyWithValue("per-run parameter (units 3) changed?", true))
	})

	It("rejects undefined properties", func() {
		bad := export.New(export.Spec{PerTick: []string{"nope"}}, sink)
		Expect(bad.Attach(model)).NotTo(Succeed())
	})

	It("labels energy2d time in seconds", func() {
		m, err := sim.New(sim.Description{"type": "energy2d"})
		Expect(err).NotTo(HaveOccurred())
		e := export.New(export.Spec{PerTick: []string{"averageTemperature"}}, sink)
		Expect(e.Attach(m)).To(Succeed())
		Expect(e.Series().Labels[0]).To(Equal(export.Label{Name: "Time", Unit: "s"}))
	})
})
