package lisa

// Quantity is the version-independent name of a physical dataset family.
type Quantity string

// Quantities known to any archive epoch.
const (
	EnergySpread    Quantity = "energy_spread"
	BunchLength     Quantity = "bunch_length"
	BunchPosition   Quantity = "bunch_position"
	BunchPopulation Quantity = "bunch_population"
	BunchProfile    Quantity = "bunch_profile"
	CSRIntensity    Quantity = "csr_intensity"
	CSRSpectrum     Quantity = "csr_spectrum"
	EnergyProfile   Quantity = "energy_profile"
	Impedance       Quantity = "impedance"
	Particles       Quantity = "particles"
	PhaseSpace      Quantity = "phase_space"
	WakePotential   Quantity = "wake_potential"
	SourceMap       Quantity = "source_map"
	Parameters      Quantity = "parameters"
)

func (q Quantity) String() string { return string(q) }
