// Package physics holds the numerical kernels stepped by a model.
//
// Kernels work on plain slices and [dynamo.State] vectors and know nothing
// about property stores or tables:
//
//   - [MD2D]: pairwise Lennard-Jones particles in a box with a uniform
//     gravitational field, in the packed layout [x..., y..., vx..., vy...]
//     expected by the Verlet integrators.
//   - [Quantum]: photon emission, propagation and absorption by excited atoms.
//   - [HeatGrid]: conduction on a regular grid, stepped by explicit FTCS with
//     automatic sub-stepping.
//   - [ReadSensor]: point probes on a temperature field.
//
// # Units
//
// Particle kernels use nm, fs, amu and eV. Forces in eV/nm are turned into
// accelerations in nm/fs² with [AccelConversion]; kinetic energy in
// amu·(nm/fs)² is turned into eV with [KEConversion]. The heat kernel is
// unit-agnostic; models treat it as seconds and metres with unit density and
// specific heat, so conductivity doubles as diffusivity.
package physics
