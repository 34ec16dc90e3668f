package heterogeneity

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/climate-net/internal/entropy"
	"github.com/talgya/climate-net/internal/world"
)

func TestSampleWithinBounds(t *testing.T) {
	cfg := DefaultConfig()
	// Wide variation forces the clamp to do real work.
	for trait := range cfg.Traits {
		cfg.Traits[trait] = TraitParams{Base: 1.0, Variation: 3.0}
	}
	cfg.VulnerabilityProductivity = map[string]float64{"producer": 4.0, "Asia": 0.01}
	cfg.GeographicAdaptation = map[world.Hazard]map[string]float64{
		world.HazardHeat: {"Asia": 9.0},
	}
	g := NewGenerator(cfg, entropy.New(42), nil)

	locations := []string{"Asia", "Europe"}
	for i := 0; i < 10000; i++ {
		v := g.Sample("producer", locations[i%2])
		checks := []struct {
			name   string
			val    float64
			family Family
		}{
			{"vulnerability_productivity", v.VulnerabilityProductivity, FamilyVulnerability},
			{"vulnerability_overhead", v.VulnerabilityOverhead, FamilyVulnerability},
			{"production_efficiency", v.ProductionEfficiency, FamilyEfficiency},
			{"overhead_efficiency", v.OverheadEfficiency, FamilyEfficiency},
			{"risk_tolerance", v.RiskTolerance, FamilyBehavioral},
			{"debt_willingness", v.DebtWillingness, FamilyBehavioral},
			{"consumption_preference", v.ConsumptionPreference, FamilyBehavioral},
			{"network_connectivity", v.NetworkConnectivity, FamilyNetwork},
			{"trade_preference", v.TradePreference, FamilyNetwork},
		}
		for _, h := range world.Hazards {
			checks = append(checks, struct {
				name   string
				val    float64
				family Family
			}{string(h), v.Adaptation[h], FamilyAdaptation})
		}
		for _, c := range checks {
			b := g.Bounds(c.family)
			if c.val < b.Min || c.val > b.Max || math.IsNaN(c.val) {
				t.Fatalf("sample %d: %s = %v outside [%v, %v]", i, c.name, c.val, b.Min, b.Max)
			}
		}
	}
}

func TestSampleDistribution(t *testing.T) {
	g := NewGenerator(DefaultConfig(), entropy.New(5), nil)
	const n = 10000
	eff := make([]float64, n)
	risk := make([]float64, n)
	for i := range eff {
		v := g.Sample("consumer", "Europe")
		eff[i] = v.ProductionEfficiency
		risk[i] = v.RiskTolerance
	}
	if m := stat.Mean(eff, nil); math.Abs(m-1.0) > 0.02 {
		t.Errorf("production efficiency mean = %.4f, want ~1.0", m)
	}
	// Clamping trims the tails, so the spread lands a little under 0.3.
	if sd := stat.StdDev(risk, nil); sd < 0.25 || sd > 0.31 {
		t.Errorf("risk tolerance stddev = %.4f, want ~0.3", sd)
	}
}

func TestVulnerabilityMultipliesTypeAndLocation(t *testing.T) {
	tests := []struct {
		name     string
		table    map[string]float64
		location string
		want     float64
	}{
		{"type only", map[string]float64{"farm": 1.5}, "Europe", 1.5},
		{"type and location", map[string]float64{"farm": 1.5, "Asia": 1.2}, "Asia", 1.8},
		{"clamped high", map[string]float64{"farm": 2.5, "Asia": 2.0}, "Asia", 3.0},
		{"clamped low", map[string]float64{"farm": 0.01}, "Asia", 0.1},
		{"missing", nil, "Asia", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.VulnerabilityJitter = 0
			cfg.VulnerabilityProductivity = tt.table
			v := NewGenerator(cfg, entropy.New(1), nil).Sample("farm", tt.location)
			if math.Abs(v.VulnerabilityProductivity-tt.want) > 1e-12 {
				t.Errorf("vulnerability = %v, want %v", v.VulnerabilityProductivity, tt.want)
			}
		})
	}
}

func TestDisabledReturnsIdentity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	rng := entropy.New(9)
	v := NewGenerator(cfg, rng, nil).Sample("farm", "Asia")
	if v.ProductionEfficiency != 1 || v.VulnerabilityOverhead != 1 || v.Adaptation[world.HazardStorm] != 1 {
		t.Errorf("disabled sample = %+v, want identity", v)
	}
	if rng.Draws() != 0 {
		t.Errorf("disabled generator consumed %d draws", rng.Draws())
	}
}

func TestTerrainAdaptation(t *testing.T) {
	regions, err := world.Generate(world.DefaultGenConfig(3))
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.AdaptationJitter = 0
	cfg.TerrainAdaptation = true
	cfg.GeographicAdaptation = map[world.Hazard]map[string]float64{
		world.HazardFlood: {"Africa": 2.0},
	}
	v := NewGenerator(cfg, entropy.New(3), regions).Sample("farm", "Africa")

	if got := v.Adaptation[world.HazardFlood]; got != 2.0 {
		t.Errorf("explicit flood base = %v, want 2.0", got)
	}
	if got, want := v.Adaptation[world.HazardHeat], regions.Exposure("Africa", world.HazardHeat); got != want {
		t.Errorf("heat adaptation = %v, want region exposure %v", got, want)
	}
}

func TestSampleDeterministic(t *testing.T) {
	a := NewGenerator(DefaultConfig(), entropy.New(77), nil)
	b := NewGenerator(DefaultConfig(), entropy.New(77), nil)
	for i := 0; i < 100; i++ {
		va, vb := a.Sample("farm", "Asia"), b.Sample("farm", "Asia")
		if va.TradePreference != vb.TradePreference || va.Adaptation[world.HazardDrought] != vb.Adaptation[world.HazardDrought] {
			t.Fatalf("sample %d diverged", i)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative variation", func(c *Config) { c.Traits[RiskTolerance] = TraitParams{Base: 1, Variation: -1} }, true},
		{"unknown trait", func(c *Config) { c.Traits["charisma"] = TraitParams{Base: 1} }, true},
		{"inverted bounds", func(c *Config) { c.Bounds[FamilyNetwork] = Bounds{Min: 2, Max: 1} }, true},
		{"unknown hazard", func(c *Config) {
			c.GeographicAdaptation = map[world.Hazard]map[string]float64{"locusts": {"Asia": 1}}
		}, true},
		{"jitter too large", func(c *Config) { c.VulnerabilityJitter = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
