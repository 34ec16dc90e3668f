package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/climate-net/internal/agents"
)

// ErrGraphConsistency means the graph and the population disagree about
// which agents exist. It is fatal: Run stops and returns it.
var ErrGraphConsistency = errors.New("graph inconsistent with population")

// ErrNotAdjacent is returned by the phase environment when a callback tries
// to trade or pay outside its neighborhood.
var ErrNotAdjacent = errors.New("agents are not adjacent")

// PhaseError records a phase callback that returned an error or panicked.
// The agent is skipped for that phase only.
type PhaseError struct {
	Round int
	Phase agents.Phase
	Agent agents.AgentID
	Type  string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("round %d phase %s agent %d (%s): %v", e.Round, e.Phase, e.Agent, e.Type, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// ReplacementError records a bankrupt agent that could not be replaced.
// The population shrinks by one.
type ReplacementError struct {
	Agent agents.AgentID
	Type  string
	Err   error
}

func (e *ReplacementError) Error() string {
	return fmt.Sprintf("replace agent %d (%s): %v", e.Agent, e.Type, e.Err)
}

func (e *ReplacementError) Unwrap() error { return e.Err }
