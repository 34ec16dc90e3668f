package world

import (
	"fmt"
	"strings"
)

// Hazard is a climate hazard class used for geographic adaptation.
type Hazard string

const (
	HazardHeat    Hazard = "heat"
	HazardDrought Hazard = "drought"
	HazardFlood   Hazard = "flood"
	HazardStorm   Hazard = "storm"
)

// Hazards lists every hazard in sampling order.
var Hazards = [...]Hazard{HazardHeat, HazardDrought, HazardFlood, HazardStorm}

// Region is a location agents can be assigned to.
type Region struct {
	Name string  `json:"name"`
	X    float64 `json:"x"` // Position in the noise field
	Y    float64 `json:"y"`

	// Exposure is a relative hazard intensity around 1.0, derived from the
	// region's temperature, rainfall and elevation noise.
	Exposure map[Hazard]float64 `json:"exposure"`
}

// Map holds the ordered region catalogue.
type Map struct {
	Regions []*Region `json:"regions"`
	index   map[string]*Region
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{index: make(map[string]*Region)}
}

// Add appends a region. Names must be unique.
func (m *Map) Add(r *Region) error {
	if _, dup := m.index[r.Name]; dup {
		return fmt.Errorf("duplicate region %q", r.Name)
	}
	m.Regions = append(m.Regions, r)
	m.index[r.Name] = r
	return nil
}

// Get returns the region with the given name, or nil.
func (m *Map) Get(name string) *Region {
	return m.index[name]
}

// Has reports whether a region is in the catalogue.
func (m *Map) Has(name string) bool {
	_, ok := m.index[name]
	return ok
}

// Names returns region names in catalogue order.
func (m *Map) Names() []string {
	names := make([]string, len(m.Regions))
	for i, r := range m.Regions {
		names[i] = r.Name
	}
	return names
}

// Exposure returns the hazard exposure of a region, or 1.0 when either the
// region or the hazard is unknown.
func (m *Map) Exposure(name string, h Hazard) float64 {
	r := m.index[name]
	if r == nil {
		return 1.0
	}
	if v, ok := r.Exposure[h]; ok {
		return v
	}
	return 1.0
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map{regions: %s}", strings.Join(m.Names(), ", "))
}
