package physics

const (
	// AccelConversion converts eV/(nm·amu) to nm/fs².
	AccelConversion = 9.648533212e-5

	// KEConversion converts amu·(nm/fs)² to eV.
	KEConversion = 10364.2697

	// Boltzmann is k_B in eV/K.
	Boltzmann = 8.617333262e-5

	// Hbar is the reduced Planck constant in eV·fs.
	Hbar = 0.6582119569
)
