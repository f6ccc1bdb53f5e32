package lisa

import (
	"fmt"
	"maps"
	"slices"
)

var axisPaths = map[Role]string{
	TimeAxis:      "/Info/AxisValues_t",
	SpaceAxis:     "/Info/AxisValues_z",
	EnergyAxis:    "/Info/AxisValues_E",
	FrequencyAxis: "/Info/AxisValues_f",
}

var dataPaths = map[Role]string{
	Data:      "data",
	Real:      "data/real",
	Imag:      "data/imag",
	XData:     "data/x",
	YData:     "data/y",
	DataGroup: "data",
}

// AxisSelector knows, for one epoch, which roles each quantity has and where
// each role is stored.
type AxisSelector struct {
	roles map[Quantity][]Role
}

// NewAxisSelector returns the selector of version v.
func NewAxisSelector(v Version) *AxisSelector {
	return &AxisSelector{roles: schemaFor(v).roles}
}

// Roles returns the roles of q in their declared order.
func (s *AxisSelector) Roles(q Quantity) ([]Role, error) {
	roles, ok := s.roles[q]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuantity, q)
	}
	return slices.Clone(roles), nil
}

// Has reports whether q has role r.
func (s *AxisSelector) Has(q Quantity, r Role) bool {
	return slices.Contains(s.roles[q], r)
}

// Resolve returns where role r of quantity q is stored. Axes resolve to
// absolute paths, everything else to a path relative to the quantity group.
func (s *AxisSelector) Resolve(r Role, q Quantity) (string, error) {
	roles, ok := s.roles[q]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownQuantity, q)
	}
	if !slices.Contains(roles, r) {
		return "", fmt.Errorf("%w: %s has no %s", ErrRoleNotApplicable, q, r)
	}
	if p, ok := axisPaths[r]; ok {
		return p, nil
	}
	return dataPaths[r], nil
}

// Quantities returns every quantity the selector knows, sorted.
func (s *AxisSelector) Quantities() []Quantity {
	return slices.Sorted(maps.Keys(s.roles))
}
