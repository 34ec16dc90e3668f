package export

import (
	"errors"
	"path/filepath"

	"github.com/talgya/climate-net/internal/agents"
	"github.com/talgya/climate-net/internal/engine"
)

// File names inside a run directory.
const (
	RoundsFile      = "rounds.jsonl.zst"
	ResetsFile      = "resets.jsonl.zst"
	ShocksFile      = "shocks.jsonl.zst"
	PerformanceFile = "performance.jsonl.zst"
	NetworkFile     = "network.jsonl.zst"
)

// ResetEntry is the post-reset view of one round: every agent's current
// values once acute stress has been cleared.
type ResetEntry struct {
	Round  int          `json:"round"`
	Agents []AgentState `json:"agents"`
}

// AgentState is one agent's climate-adjusted values.
type AgentState struct {
	ID                  agents.AgentID `json:"id"`
	Type                string         `json:"type"`
	Money               float64        `json:"money"`
	BaseOutput          float64        `json:"base_output"`
	CurrentOutput       float64        `json:"current_output"`
	CurrentOverhead     float64        `json:"current_overhead"`
	ChronicProductivity float64        `json:"chronic_productivity"`
	ChronicOverhead     float64        `json:"chronic_overhead"`
}

// Exporter streams round snapshots during a run and writes the rest of the
// results when it finishes. It is an engine.Observer.
type Exporter struct {
	dir    string
	rounds *JSONLZstdWriter
	resets *JSONLZstdWriter
}

var _ engine.Observer = (*Exporter)(nil)

// NewExporter writes into dir, one file per stream.
func NewExporter(dir string) *Exporter {
	return &Exporter{
		dir:    dir,
		rounds: NewJSONLZstdWriter(filepath.Join(dir, RoundsFile)),
		resets: NewJSONLZstdWriter(filepath.Join(dir, ResetsFile)),
	}
}

// Dir returns the output directory.
func (e *Exporter) Dir() string { return e.dir }

func (e *Exporter) RoundCaptured(snap engine.RoundSnapshot) error {
	return e.rounds.Write(snap)
}

func (e *Exporter) RoundReset(round int, pop *agents.Population) error {
	entry := ResetEntry{Round: round, Agents: make([]AgentState, 0, pop.Len())}
	for _, a := range pop.Agents() {
		entry.Agents = append(entry.Agents, AgentState{
			ID:                  a.ID,
			Type:                a.Type,
			Money:               a.Money,
			BaseOutput:          a.BaseOutput,
			CurrentOutput:       a.CurrentOutput,
			CurrentOverhead:     a.CurrentOverhead,
			ChronicProductivity: a.Climate.ChronicProductivity,
			ChronicOverhead:     a.Climate.ChronicOverhead,
		})
	}
	return e.resets.Write(entry)
}

// WriteResults writes the shock log, per-agent performance and the network
// summary.
func (e *Exporter) WriteResults(res *engine.Results) error {
	shocks := NewJSONLZstdWriter(filepath.Join(e.dir, ShocksFile))
	for _, ev := range res.Shocks {
		if err := shocks.Write(ev); err != nil {
			shocks.Close()
			return err
		}
	}

	perf := NewJSONLZstdWriter(filepath.Join(e.dir, PerformanceFile))
	for _, p := range res.Performance {
		if err := perf.Write(p); err != nil {
			return errors.Join(err, shocks.Close(), perf.Close())
		}
	}

	net := NewJSONLZstdWriter(filepath.Join(e.dir, NetworkFile))
	werr := net.Write(res.Network)
	return errors.Join(werr, shocks.Close(), perf.Close(), net.Close())
}

// Close flushes the streaming files.
func (e *Exporter) Close() error {
	return errors.Join(e.rounds.Close(), e.resets.Close())
}
