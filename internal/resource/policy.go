package resource

import (
	"fmt"
	"strings"
)

// Level is a user-selected guardrail strength.
type Level string

const (
	LevelOff      Level = "off"
	LevelRelaxed  Level = "relaxed"
	LevelBalanced Level = "balanced"
	LevelStrict   Level = "strict"
	LevelCustom   Level = "custom"
)

// ParseLevel maps a settings string to a Level. Empty means balanced.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LevelBalanced, nil
	case LevelOff, LevelRelaxed, LevelBalanced, LevelStrict, LevelCustom:
		return l, nil
	default:
		return "", fmt.Errorf("unknown guardrail level %q", s)
	}
}

// Policy caps how much memory a model load may take.
type Policy struct {
	Level Level
	// CustomPercent applies when Level is custom.
	CustomPercent int
}

// ResolvedPercentage returns the share of total memory the policy allows.
func ResolvedPercentage(p Policy) int {
	switch p.Level {
	case LevelOff:
		return 100
	case LevelRelaxed:
		return 80
	case LevelStrict:
		return 40
	case LevelCustom:
		return clampPercent(p.CustomPercent)
	default:
		return 60
	}
}

// BudgetBytes returns the memory ceiling for a policy.
func BudgetBytes(p Policy, totalMemoryBytes uint64) uint64 {
	return totalMemoryBytes * uint64(ResolvedPercentage(p)) / 100
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed     bool
	Reason      string
	BudgetBytes uint64
}

// Admit decides whether a load needing requiredBytes fits the policy. It is
// an advisory pre-check and is evaluated once, before the load starts.
func Admit(requiredBytes, totalMemoryBytes uint64, p Policy) Decision {
	budget := BudgetBytes(p, totalMemoryBytes)
	if p.Level == LevelOff || requiredBytes <= budget {
		return Decision{Allowed: true, BudgetBytes: budget}
	}
	return Decision{
		Allowed:     false,
		BudgetBytes: budget,
		Reason: fmt.Sprintf("guardrail %s (%d%%): model needs %d bytes, budget is %d of %d bytes",
			p.Level, ResolvedPercentage(p), requiredBytes, budget, totalMemoryBytes),
	}
}
