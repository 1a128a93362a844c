package workflow

import (
	"fmt"
	"strings"
)

// Phase selects what a run does.
type Phase string

const (
	PhaseStage       Phase = "stage"
	PhaseMaterialize Phase = "materialize"
	PhaseAll         Phase = "all"
)

// ParsePhase accepts the phase names case-insensitively. Blank means PhaseAll.
func ParsePhase(value string) (Phase, error) {
	switch Phase(strings.ToLower(strings.TrimSpace(value))) {
	case "", PhaseAll:
		return PhaseAll, nil
	case PhaseStage:
		return PhaseStage, nil
	case PhaseMaterialize:
		return PhaseMaterialize, nil
	default:
		return "", fmt.Errorf("unknown phase %q (want stage, materialize or all)", value)
	}
}

func (p Phase) includes(step Phase) bool {
	return p == PhaseAll || p == step
}
