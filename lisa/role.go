package lisa

import (
	"fmt"
	"strings"
)

// Role names one component of a quantity: an axis, the data itself, or the
// group holding per-quantity scale attributes.
type Role int

// Roles.
const (
	TimeAxis Role = iota
	SpaceAxis
	EnergyAxis
	FrequencyAxis
	Data
	Real
	Imag
	XData
	YData
	DataGroup
)

var roleNames = [...]string{
	TimeAxis:      "timeaxis",
	SpaceAxis:     "spaceaxis",
	EnergyAxis:    "energyaxis",
	FrequencyAxis: "frequencyaxis",
	Data:          "data",
	Real:          "real",
	Imag:          "imag",
	XData:         "xdata",
	YData:         "ydata",
	DataGroup:     "datagroup",
}

var roleAliases = map[string]Role{
	"t": TimeAxis, "time": TimeAxis,
	"x": SpaceAxis, "z": SpaceAxis, "space": SpaceAxis,
	"e": EnergyAxis, "energy": EnergyAxis,
	"f": FrequencyAxis, "frequency": FrequencyAxis,
	"re": Real,
	"im": Imag, "imaginary": Imag,
	"group": DataGroup,
}

func (r Role) String() string {
	if r >= 0 && int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Axis reports whether r is one of the archive-wide axes.
func (r Role) Axis() bool { return r <= FrequencyAxis && r >= TimeAxis }

// ParseRole accepts a canonical role name or one of its short aliases,
// case-insensitively.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range roleNames {
		if s == name {
			return Role(i), nil
		}
	}
	if r, ok := roleAliases[s]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("%w: %q is not a role", ErrRoleNotApplicable, s)
}
