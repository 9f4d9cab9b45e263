package sim_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/labsim/internal/dynamo"
	"github.com/san-kum/labsim/internal/sim"
)

var _ = Describe("MD2D model with quantum dynamics", func() {
	var model *sim.Model

	newModel := func(d sim.Description) *sim.Model {
		m, err := sim.New(d)
		Expect(err).NotTo(HaveOccurred())
		return m
	}

	Describe("when using quantum dynamics", func() {
		BeforeEach(func() {
			model = newModel(sim.Description{"quantumDynamics": map[string]any{}})
		})

		It("has useQuantumDynamics = true", func() {
			Expect(model.Get("useQuantumDynamics")).To(BeTrue())
		})

		It("does not have a quantumDynamics property", func() {
			_, err := model.Get("quantumDynamics")
			Expect(err).To(MatchError(dynamo.ErrUnknownProperty))
		})

		It("has an excitation column with a default of zero", func() {
			Expect(model.CreateAtoms(map[string]any{"x": []any{1, 1}, "y": []any{1, 1}})).To(Succeed())

			row, err := model.AtomProperties(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(row).To(HaveKeyWithValue("excitation", 0.0))
		})

		It("reads excitation values", func() {
			Expect(model.CreateAtoms(map[string]any{
				"x": []any{1, 1}, "y": []any{1, 1}, "excitation": []any{0, 1},
			})).To(Succeed())

			row, _ := model.AtomProperties(0)
			Expect(row["excitation"]).To(Equal(0.0))
			row, _ = model.AtomProperties(1)
			Expect(row["excitation"]).To(Equal(1.0))
		})

		Describe("serialization", func() {
			BeforeEach(func() {
				Expect(model.CreateAtoms(map[string]any{
					"x": []any{1, 1}, "y": []any{1, 1}, "excitation": []any{0, 1},
				})).To(Succeed())
			})

			It("includes excitation values in the atoms table", func() {
				atoms := model.Serialize()["atoms"].(map[string]any)
				Expect(atoms["excitation"]).To(Equal([]float64{0, 1}))
			})

			It("includes a quantumDynamics stanza with its parameters", func() {
				qd, ok := model.Serialize()["quantumDynamics"].(map[string]any)
				Expect(ok).To(BeTrue())
				Expect(qd).To(HaveKey("excitationEnergy"))
				Expect(qd).To(HaveKey("photonSpeed"))
				Expect(qd).To(HaveKey("absorptionRadius"))
			})

			It("still has a photons object when there are no photons", func() {
				qd := model.Serialize()["quantumDynamics"].(map[string]any)
				Expect(qd["photons"]).To(Equal(map[string]any{
					"x": []float64{}, "y": []float64{}, "vx": []float64{}, "vy": []float64{},
					"angularFrequency": []float64{},
				}))
			})
		})

		Describe("of photons", func() {
			It("serializes photon data", func() {
				model = newModel(sim.Description{"quantumDynamics": map[string]any{
					"photons": map[string]any{
						"x": []any{0}, "y": []any{1}, "vx": []any{2}, "vy": []any{3}, "angularFrequency": []any{4},
					},
				}})
				qd := model.Serialize()["quantumDynamics"].(map[string]any)
				Expect(qd["photons"]).To(Equal(map[string]any{
					"x": []float64{0}, "y": []float64{1}, "vx": []float64{2}, "vy": []float64{3},
					"angularFrequency": []float64{4},
				}))
			})

			It("omits non-moving photons and keeps the order of the rest", func() {
				model = newModel(sim.Description{"quantumDynamics": map[string]any{
					"photons": map[string]any{
						"x":                []any{0, 0, 0},
						"y":                []any{1, 1, 1},
						"vx":               []any{2, 0, 0},
						"vy":               []any{3, 0, 3},
						"angularFrequency": []any{4, 4, 4},
					},
				}})
				qd := model.Serialize()["quantumDynamics"].(map[string]any)
				Expect(qd["photons"]).To(Equal(map[string]any{
					"x":                []float64{0, 0},
					"y":                []float64{1, 1},
					"vx":               []float64{2, 0},
					"vy":               []float64{3, 3},
					"angularFrequency": []float64{4, 4},
				}))
				Expect(model.Get("numPhotons")).To(Equal(2.0))
			})
		})

		Describe("stepping", func() {
			It("emits a photon from an excited atom and decrements its excitation", func() {
				Expect(model.CreateAtoms(map[string]any{
					"x": []any{2}, "y": []any{2}, "excitation": []any{1},
				})).To(Succeed())
				Expect(model.Tick()).To(Succeed())

				row, _ := model.AtomProperties(0)
				Expect(row["excitation"]).To(Equal(0.0))
				Expect(model.Get("numPhotons")).To(Equal(1.0))

				Expect(model.StepBack()).To(Succeed())
				row, _ = model.AtomProperties(0)
				Expect(row["excitation"]).To(Equal(1.0))
				Expect(model.Get("numPhotons")).To(Equal(0.0))
			})
		})
	})

	Describe("when not using quantum dynamics", func() {
		BeforeEach(func() {
			model = newModel(sim.Description{"quantumDynamics": nil})
		})

		It("does not allow excitation to be set", func() {
			err := model.CreateAtoms(map[string]any{
				"x": []any{1, 1}, "y": []any{1, 1}, "excitation": []any{0, 1},
			})
			Expect(err).To(MatchError(dynamo.ErrCapabilityMismatch))

			var capErr *dynamo.CapabilityMismatchError
			Expect(errors.As(err, &capErr)).To(BeTrue())
			Expect(capErr.Column).To(Equal("excitation"))
			Expect(model.Get("numAtoms")).To(Equal(0.0))
		})

		It("does not have an excitation column", func() {
			Expect(model.CreateAtoms(map[string]any{"x": []any{1, 1}, "y": []any{1, 1}})).To(Succeed())
			row, _ := model.AtomProperties(0)
			Expect(row).NotTo(HaveKey("excitation"))
			Expect(model.Serialize()).NotTo(HaveKey("quantumDynamics"))
		})

		It("has useQuantumDynamics = false", func() {
			Expect(model.Get("useQuantumDynamics")).To(BeFalse())
		})

		It("rejects photons", func() {
			err := model.CreateRows("photons", map[string]any{"x": []any{1}})
			Expect(err).To(MatchError(dynamo.ErrCapabilityMismatch))
		})
	})

	Describe("toggling the capability", func() {
		BeforeEach(func() {
			model = newModel(sim.Description{"atoms": map[string]any{"x": []any{1, 2}, "y": []any{1, 1}}})
		})

		It("back-fills excitation and drops it again", func() {
			Expect(model.SetCapability(sim.QuantumDynamics, true)).To(Succeed())
			Expect(model.Get("useQuantumDynamics")).To(BeTrue())
			row, _ := model.AtomProperties(1)
			Expect(row).To(HaveKeyWithValue("excitation", 0.0))
			Expect(model.Serialize()).To(HaveKey("quantumDynamics"))

			Expect(model.SetCapability(sim.QuantumDynamics, false)).To(Succeed())
			row, _ = model.AtomProperties(1)
			Expect(row).NotTo(HaveKey("excitation"))
			Expect(model.Serialize()).NotTo(HaveKey("quantumDynamics"))
		})

		It("rejects unknown capabilities", func() {
			Expect(model.SetCapability("magnetism", true)).NotTo(Succeed())
		})
	})
})
