// Package analysis characterizes model runs.
//
//   - [PowerSpectrum] and [DominantFrequency]: FFT of an exported column
//   - [PhasePortrait]: one exported column against another
//   - [Sweep]: an output as a function of one parameter
//   - [LyapunovExponent]: divergence rate of two nearly identical gases
//
// A positive exponent indicates chaotic atom trajectories:
//
//	lambda, err := analysis.LyapunovExponent(ctx, desc, 1e-6, 500)
//	if err == nil && lambda > 0 {
//	    // trajectories diverge
//	}
package analysis
