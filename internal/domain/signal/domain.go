package signal

import (
	"sort"

	"github.com/NordCoder/Studiobell/internal/domain/entity"
)

// Severity is ordered by rank: a lower value sorts first.
type Severity int

const (
	Urgent Severity = iota
	Attention
	Info
)

func (s Severity) String() string {
	switch s {
	case Urgent:
		return "urgent"
	case Attention:
		return "attention"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Signal interface {
	Rank() Severity
}

type Badge struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	Severity   Severity    `json:"severity"`
	Tooltip    string      `json:"tooltip"`
	Days       int         `json:"days,omitempty"`
	EntityType entity.Kind `json:"entity_type"`
	EntityID   int64       `json:"entity_id"`
}

type AlertSummary struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Severity    Severity    `json:"severity"`
	EntityType  entity.Kind `json:"entity_type"`
	MatchCount  int         `json:"match_count"`
	ActionPath  string      `json:"action_path"`
}

func (b Badge) Rank() Severity        { return b.Severity }
func (a AlertSummary) Rank() Severity { return a.Severity }

// SortStable orders by severity only; equal severities keep their input order.
func SortStable[S Signal](list []S) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Rank() < list[j].Rank() })
}
