package lisa

import (
	"strings"
)

// Unit is a requested physical unit. The zero value, Raw, asks for stored
// values without scaling. Names are matched case-insensitively.
type Unit struct {
	name string
	set  bool
}

// Raw requests unscaled values.
var Raw Unit

// UnitOf returns the unit called name. An empty name is not Raw: converting
// to it fails with ErrNoUnitSpecified.
func UnitOf(name string) Unit {
	return Unit{name: strings.ToLower(name), set: true}
}

// IsRaw reports whether u requests unscaled values.
func (u Unit) IsRaw() bool { return !u.set }

func (u Unit) String() string {
	if !u.set {
		return "raw"
	}
	return u.name
}

// factorNames holds the attribute carrying a unit's factor, under the names
// used from UnitNamesRenamed on and before it. Empty names mean the unit is
// the storage unit itself.
type factorNames struct {
	current, old string
}

func names(current string) factorNames {
	return factorNames{current: current, old: "Factor4" + current}
}

var (
	meter        = factorNames{"Meter", "Factor4Meters"}
	second       = factorNames{"Second", "Factor4Seconds"}
	watt         = factorNames{"Watt", "Factor4Watts"}
	hertz        = factorNames{"Hertz", "Factor4Hertz"}
	electronVolt = factorNames{"ElectronVolt", "Factor4ElectronVolts"}
	volt         = factorNames{"Volt", "Factor4Volts"}
	ohm          = factorNames{"Ohm", "Factor4Ohms"}
	raw          = factorNames{}
)

var unitTable = map[string]factorNames{
	"m": meter, "meter": meter, "meters": meter,
	"s": second, "second": second, "seconds": second,
	"w": watt, "watt": watt, "watts": watt,
	"hz": hertz, "hertz": hertz,
	"ev": electronVolt, "electronvolt": electronVolt, "electronvolts": electronVolt,
	"v": volt, "volt": volt, "volts": volt,
	"ohm": ohm, "ohms": ohm,
	"a": names("Ampere"), "ampere": names("Ampere"), "amperes": names("Ampere"),
	"c": names("Coulomb"), "coulomb": names("Coulomb"), "coulombs": names("Coulomb"),
	"wphz": names("WattPerHertz"), "w/hz": names("WattPerHertz"),
	"cpnbl":     names("CoulombPerNBL"),
	"apnbl":     names("AmperePerNBL"),
	"cpnes":     names("CoulombPerNES"),
	"apnes":     names("AmperePerNES"),
	"cpnblpnes": names("CoulombPerNBLPerNES"),
	"apnblpnes": names("AmperePerNBLPerNES"),
	"ts":        raw,
	"raw":       raw,
}

// factorAttr returns the attribute holding the factor of the unit alias in
// archives of version v. isRaw is true for aliases of the storage unit and
// for aliases the table does not know, which are left unscaled.
func factorAttr(alias string, v Version) (name string, isRaw bool) {
	n, ok := unitTable[strings.ToLower(alias)]
	if !ok || n == raw {
		return "", true
	}
	if v.AtLeast(UnitNamesRenamed) {
		return n.current, false
	}
	return n.old, false
}

// matchAttr finds the factor attribute, trying the canonical name, then the
// name without the Factor4 prefix, then that without its last character.
// Some v0.14 archives wrote the shortened forms.
func matchAttr(attrs Attrs, name string) (string, bool) {
	if attrs.Has(name) {
		return name, true
	}
	short, ok := strings.CutPrefix(name, "Factor4")
	if !ok {
		return "", false
	}
	if attrs.Has(short) {
		return short, true
	}
	if len(short) > 1 && attrs.Has(short[:len(short)-1]) {
		return short[:len(short)-1], true
	}
	return "", false
}

// compositeUnit divides a factor on the data role by the scale factors of
// one or two axes.
type compositeUnit struct {
	numerator string // alias suffix after the c or a prefix
	divisors  []Role
	forbidden Role // a quantity with this axis cannot be converted
	checked   bool
}

var (
	perSpace  = compositeUnit{numerator: "pnbl", divisors: []Role{SpaceAxis}, forbidden: EnergyAxis, checked: true}
	perEnergy = compositeUnit{numerator: "pnes", divisors: []Role{EnergyAxis}, forbidden: SpaceAxis, checked: true}
	perBoth   = compositeUnit{numerator: "pnblpnes", divisors: []Role{EnergyAxis, SpaceAxis}}
)

var compositeTable = map[string]compositeUnit{
	"cps": perSpace, "c/s": perSpace, "aps": perSpace, "a/s": perSpace,
	"cpev": perEnergy, "c/ev": perEnergy, "apev": perEnergy, "a/ev": perEnergy,
	"cpspev": perBoth, "c/s/ev": perBoth, "apspev": perBoth, "a/s/ev": perBoth,
	"cpevps": perBoth, "c/ev/s": perBoth, "apevps": perBoth, "a/ev/s": perBoth,
}

// divisorAlias is the unit whose factor scales each axis of a composite.
var divisorAlias = map[Role]string{
	SpaceAxis:  "s",
	EnergyAxis: "ev",
}
