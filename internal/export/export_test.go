package export

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/talgya/climate-net/internal/climate"
	"github.com/talgya/climate-net/internal/config"
	"github.com/talgya/climate-net/internal/engine"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lines.jsonl.zst")
	w := NewJSONLZstdWriter(path)
	for i := 0; i < 3; i++ {
		if err := w.Write(map[string]int{"n": i}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if w.Lines() != 3 {
		t.Errorf("lines = %d", w.Lines())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var got []int
	err := ReadJSONL(path, func(line []byte) error {
		var v map[string]int
		if err := json.Unmarshal(line, &v); err != nil {
			return err
		}
		got = append(got, v["n"])
		return nil
	})
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("decoded %v", got)
	}
}

func TestCloseWithoutWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl.zst")
	w := NewJSONLZstdWriter(path)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file created without a write: %v", err)
	}
}

func TestExporterStreamsBothViews(t *testing.T) {
	cfg, err := config.Example()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Climate.ShockRules = []climate.Rule{
		{Name: "heatwave", Probability: 1, ProductivityFactor: climate.Factor(0.5)},
	}
	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	exp := NewExporter(dir)
	sim.AddObserver(exp)

	res, err := sim.Run(3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := exp.WriteResults(res); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	if err := exp.Close(); err != nil {
		t.Fatal(err)
	}

	var snaps []engine.RoundSnapshot
	err = ReadJSONL(filepath.Join(dir, RoundsFile), func(line []byte) error {
		var s engine.RoundSnapshot
		if err := json.Unmarshal(line, &s); err != nil {
			return err
		}
		snaps = append(snaps, s)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(snaps))
	}
	for _, s := range snaps {
		if s.Total.Stressed == 0 {
			t.Errorf("round %d pre-reset snapshot shows no stress", s.Round)
		}
	}

	err = ReadJSONL(filepath.Join(dir, ResetsFile), func(line []byte) error {
		var e ResetEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		for _, a := range e.Agents {
			if a.CurrentOutput != a.BaseOutput*a.ChronicProductivity {
				t.Errorf("round %d agent %d output %v, want base times chronic %v",
					e.Round, a.ID, a.CurrentOutput, a.BaseOutput*a.ChronicProductivity)
			}
		}
		if len(e.Agents) == 0 {
			t.Errorf("round %d reset view has no agents", e.Round)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	perf := 0
	if err := ReadJSONL(filepath.Join(dir, PerformanceFile), func([]byte) error { perf++; return nil }); err != nil {
		t.Fatal(err)
	}
	if perf != len(res.Performance) {
		t.Errorf("performance lines = %d, want %d", perf, len(res.Performance))
	}

	shocks := 0
	if err := ReadJSONL(filepath.Join(dir, ShocksFile), func([]byte) error { shocks++; return nil }); err != nil {
		t.Fatal(err)
	}
	if shocks != len(res.Shocks) {
		t.Errorf("shock lines = %d, want %d", shocks, len(res.Shocks))
	}

	var summary engine.NetworkSummary
	err = ReadJSONL(filepath.Join(dir, NetworkFile), func(line []byte) error {
		return json.Unmarshal(line, &summary)
	})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Stats.Nodes != res.Network.Stats.Nodes || len(summary.Edges) != len(res.Network.Edges) {
		t.Errorf("network summary = %+v", summary.Stats)
	}
}
