package signals

import (
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/entity"
	"github.com/NordCoder/Studiobell/internal/domain/signal"
)

// Registry keeps rules per entity kind in registration order.
type Registry struct {
	rules map[entity.Kind][]Rule
}

func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{rules: make(map[entity.Kind][]Rule)}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

func (r *Registry) Register(rule Rule) {
	if rule.match == nil {
		return
	}
	r.rules[rule.Kind] = append(r.rules[rule.Kind], rule)
}

func (r *Registry) Rules(kind entity.Kind) []Rule {
	return append([]Rule(nil), r.rules[kind]...)
}

var defaultRegistry = NewRegistry(defaultRules()...)

func Default() *Registry { return defaultRegistry }

// Evaluate runs every rule registered for the snapshot's kind against the default registry.
func Evaluate(s entity.Snapshot, now time.Time) []signal.Badge {
	return defaultRegistry.Evaluate(s, now)
}

// Evaluate never fails: malformed snapshots and misbehaving rules produce no badge.
func (r *Registry) Evaluate(s entity.Snapshot, now time.Time) []signal.Badge {
	if !wellFormed(s) {
		return nil
	}
	var out []signal.Badge
	for _, rule := range r.rules[s.Kind()] {
		h, ok := apply(rule, s, now)
		if !ok {
			continue
		}
		out = append(out, signal.Badge{
			ID:         rule.ID,
			Label:      rule.Label,
			Severity:   rule.Severity,
			Tooltip:    h.tooltip,
			Days:       h.days,
			EntityType: s.Kind(),
			EntityID:   s.EntityID(),
		})
	}
	signal.SortStable(out)
	return out
}

func (r *Registry) Has(s entity.Snapshot, badgeID string, now time.Time) bool {
	if !wellFormed(s) {
		return false
	}
	for _, rule := range r.rules[s.Kind()] {
		if rule.ID != badgeID {
			continue
		}
		if _, ok := apply(rule, s, now); ok {
			return true
		}
	}
	return false
}

func apply(rule Rule, s entity.Snapshot, now time.Time) (h hit, ok bool) {
	defer func() {
		if recover() != nil {
			h, ok = hit{}, false
		}
	}()
	return rule.match(s, now)
}

func wellFormed(s entity.Snapshot) bool {
	switch v := s.(type) {
	case *entity.Quote:
		return v != nil
	case *entity.Invoice:
		return v != nil
	case *entity.Payment:
		return v != nil
	case *entity.Contract:
		return v != nil
	case *entity.Job:
		return v != nil
	case *entity.Lead:
		return v != nil
	default:
		return false
	}
}
