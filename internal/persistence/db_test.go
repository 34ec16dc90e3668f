package persistence

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/talgya/climate-net/internal/config"
	"github.com/talgya/climate-net/internal/engine"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func exampleResults(t *testing.T, rounds int) *engine.Results {
	t.Helper()
	cfg, err := config.Example()
	if err != nil {
		t.Fatal(err)
	}
	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		t.Fatal(err)
	}
	res, err := sim.Run(rounds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestSaveAndLoadResults(t *testing.T) {
	db := openTemp(t)
	res := exampleResults(t, 4)

	if err := db.SaveResults(res); err != nil {
		t.Fatalf("SaveResults: %v", err)
	}
	// Saving the same run again replaces it.
	if err := db.SaveResults(res); err != nil {
		t.Fatalf("SaveResults again: %v", err)
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != res.RunID || runs[0].Rounds != 4 || runs[0].Seed != 42 {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].Edges != res.Network.Stats.Edges || runs[0].Strategy != "supply_chain" {
		t.Errorf("run network = %+v", runs[0])
	}

	rows, err := db.LoadRounds(res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rounds = %d, want 4", len(rows))
	}
	for i, row := range rows {
		want := res.Rounds[i]
		if row.Round != want.Round || row.Population != want.Total.Population || row.Trades != want.Total.Trades {
			t.Errorf("round %d = %+v, want %+v", i, row, want.Total)
		}
		if row.FiredShocks == "" || row.FiredShocks == "null" {
			t.Errorf("round %d fired shocks not stored as a JSON list: %q", i, row.FiredShocks)
		}
	}

	shocks, err := db.RecentShocks(res.RunID, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(shocks) != len(res.Shocks) {
		t.Errorf("shocks = %d, want %d", len(shocks), len(res.Shocks))
	}
	for _, s := range shocks {
		if s.Rule == "gradual_warming" && (s.ProductivityFactor == nil || *s.ProductivityFactor != 0.99 || s.OverheadFactor != nil) {
			t.Errorf("chronic factors not round-tripped: %+v", s)
		}
	}

	retired, err := db.TypeSurvival(res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, n := range retired {
		total += n
	}
	want := 0
	for _, p := range res.Performance {
		if p.RetiredRound >= 0 {
			want++
		}
	}
	if total != want {
		t.Errorf("retired agents = %d, want %d", total, want)
	}
}

func TestMeta(t *testing.T) {
	db := openTemp(t)
	if _, err := db.GetMeta("last_run"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing key err = %v, want ErrNoRows", err)
	}
	res := &engine.Results{RunID: "abc", Rounds: make([]engine.RoundSnapshot, 3)}
	if err := db.SaveLastRun(res); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("last_run", "def"); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetMeta("last_run")
	if err != nil || got != "def" {
		t.Errorf("last_run = %q, %v", got, err)
	}
	rounds, err := db.GetMeta("last_run_rounds")
	if err != nil || rounds != "3" {
		t.Errorf("last_run_rounds = %q, %v", rounds, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("k", "v"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if v, err := db.GetMeta("k"); err != nil || v != "v" {
		t.Errorf("after reopen: %q, %v", v, err)
	}
}
