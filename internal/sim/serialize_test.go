package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/go-cmp/cmp"

	"github.com/san-kum/labsim/internal/property"
	"github.com/san-kum/labsim/internal/sim"
)

// roundTrip rebuilds a model from the JSON encoding of m's canonical form.
func roundTrip(m *sim.Model) *sim.Model {
	data, err := m.Serialize().JSON()
	Expect(err).NotTo(HaveOccurred())
	d, err := sim.ParseDescription(data)
	Expect(err).NotTo(HaveOccurred())
	out, err := sim.Deserialize(d)
	Expect(err).NotTo(HaveOccurred())
	return out
}

func expectEquivalent(a, b *sim.Model) {
	GinkgoHelper()
	if diff := cmp.Diff(a.Serialize(), b.Serialize()); diff != "" {
		Fail("canonical forms differ (-original +restored):\n" + diff)
	}
	pa, pb := a.Properties(), b.Properties()
	Expect(pb).To(HaveLen(len(pa)))
	for i := range pa {
		Expect(pb[i].Name).To(Equal(pa[i].Name))
		Expect(pb[i].Value).To(Equal(pa[i].Value), "property %s", pa[i].Name)
	}
}

var _ = Describe("Serialization round trip", func() {
	excitedGas := func() sim.Description {
		d := gas()
		d["atoms"].(map[string]any)["excitation"] = []any{1, 0, 2}
		d["quantumDynamics"] = map[string]any{"photonSpeed": 0.05}
		return d
	}

	It("preserves a freshly built model", func() {
		m, err := sim.New(excitedGas())
		Expect(err).NotTo(HaveOccurred())
		expectEquivalent(m, roundTrip(m))
	})

	It("preserves state through set, tick and stepBack", func() {
		m, err := sim.New(excitedGas())
		Expect(err).NotTo(HaveOccurred())

		Expect(m.Set("gravitationalField", 1e-6)).To(Succeed())
		for i := 0; i < 4; i++ {
			Expect(m.Tick()).To(Succeed())
		}
		expectEquivalent(m, roundTrip(m))

		Expect(m.StepBack()).To(Succeed())
		expectEquivalent(m, roundTrip(m))

		Expect(m.SetField("atoms", 0, "vx", 0.002)).To(Succeed())
		expectEquivalent(m, roundTrip(m))
	})

	It("continues identically after restoring", func() {
		m, err := sim.New(excitedGas())
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Tick()).To(Succeed())

		restored := roundTrip(m)
		Expect(m.Tick()).To(Succeed())
		Expect(restored.Tick()).To(Succeed())
		expectEquivalent(m, restored)
	})

	It("writes time only when non-zero", func() {
		m, err := sim.New(gas())
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Serialize()).NotTo(HaveKey("time"))
		Expect(m.Tick()).To(Succeed())
		Expect(m.Serialize()).To(HaveKeyWithValue("time", 1.0))
	})

	It("accepts YAML descriptions", func() {
		d, err := sim.ParseDescription([]byte(`
type: md2d
width: 4
quantumDynamics:
  photonSpeed: 0.2
atoms:
  x: [1, 2]
  y: [1, 1]
  excitation: [0, 1]
`))
		Expect(err).NotTo(HaveOccurred())
		m, err := sim.New(d)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Get("photonSpeed")).To(Equal(0.2))
		Expect(m.Get("width")).To(Equal(4.0))
		expectEquivalent(m, roundTrip(m))
	})

	Describe("caller-defined parameters", func() {
		define := func(m *sim.Model) error {
			return m.DefineParameter("parameter1", property.Description{Label: "Parameter 1"}, property.Number(), 1)
		}

		It("stores values under parameters and restores them on definition", func() {
			m, err := sim.New(gas())
			Expect(err).NotTo(HaveOccurred())
			Expect(define(m)).To(Succeed())
			Expect(m.Set("parameter1", 10)).To(Succeed())

			d := m.Serialize()
			Expect(d["parameters"]).To(Equal(map[string]any{"parameter1": 10.0}))

			restored := roundTrip(m)
			Expect(restored.Serialize()["parameters"]).To(Equal(map[string]any{"parameter1": 10.0}))
			Expect(define(restored)).To(Succeed())
			Expect(restored.Get("parameter1")).To(Equal(10.0))
		})
	})
})
