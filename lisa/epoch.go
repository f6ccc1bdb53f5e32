package lisa

import "maps"

// schema is one epoch's layout: which storage group holds each quantity and
// which roles each quantity has. A schema is built once per archive and is
// not modified afterwards.
type schema struct {
	groups map[Quantity]string
	roles  map[Quantity][]Role
}

func baselineSchema() schema {
	return schema{
		groups: map[Quantity]string{
			EnergySpread:    "EnergySpread",
			BunchLength:     "BunchLength",
			BunchPosition:   "BunchPosition",
			BunchPopulation: "BunchPopulation",
			BunchProfile:    "BunchProfile",
			CSRIntensity:    "CSR/Intensity",
			CSRSpectrum:     "CSR/Spectrum",
			EnergyProfile:   "EnergyProfile",
			Impedance:       "Impedance",
			Particles:       "Particles",
			PhaseSpace:      "PhaseSpace",
			WakePotential:   "WakePotential",
			Parameters:      "Info/Parameters",
		},
		roles: map[Quantity][]Role{
			BunchLength:     {TimeAxis, Data},
			BunchPopulation: {TimeAxis, Data},
			BunchPosition:   {TimeAxis, Data},
			BunchProfile:    {TimeAxis, SpaceAxis, Data},
			CSRIntensity:    {TimeAxis, Data},
			CSRSpectrum:     {TimeAxis, FrequencyAxis, Data},
			EnergyProfile:   {TimeAxis, EnergyAxis, Data},
			EnergySpread:    {TimeAxis, Data},
			Impedance:       {FrequencyAxis, Real, Imag, DataGroup},
			Particles:       {TimeAxis, Data},
			WakePotential:   {TimeAxis, SpaceAxis, Data},
			PhaseSpace:      {TimeAxis, SpaceAxis, EnergyAxis, Data},
		},
	}
}

// clone copies the maps so a patch never writes into a table another
// archive may hold. Role slices are replaced, never appended to, by patches.
func (s schema) clone() schema {
	return schema{groups: maps.Clone(s.groups), roles: maps.Clone(s.roles)}
}

// epochPatch changes the schema for the versions it applies to.
type epochPatch struct {
	name    string
	applies func(Version) bool
	apply   func(schema) schema
}

// epochPatches are applied in order to a copy of the baseline schema.
var epochPatches = []epochPatch{
	{
		name:    "add source_map",
		applies: func(v Version) bool { return SourceMapAfter.Less(v) },
		apply: func(s schema) schema {
			s = s.clone()
			s.groups[SourceMap] = "SourceMap"
			s.roles[SourceMap] = []Role{SpaceAxis, EnergyAxis, XData, YData}
			return s
		},
	},
	{
		name:    "legacy group names",
		applies: Version.Legacy,
		apply: func(s schema) schema {
			s = s.clone()
			s.groups[CSRIntensity] = "CSRPower"
			s.groups[CSRSpectrum] = "CSRSpectrum"
			s.groups[BunchPopulation] = "BunchCurrent"
			delete(s.groups, Particles)
			delete(s.groups, Parameters)
			delete(s.groups, EnergyProfile)
			s.roles[CSRSpectrum] = []Role{FrequencyAxis, TimeAxis, Data}
			return s
		},
	},
}

// schemaFor builds the schema of the given version.
func schemaFor(v Version) schema {
	s := baselineSchema()
	for _, p := range epochPatches {
		if p.applies(v) {
			s = p.apply(s)
		}
	}
	return s
}
