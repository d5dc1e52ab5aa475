// Package router deterministically selects a model from a registry
// given a capability and constraints (spec.md §4.9). Grounded on
// agents/runtime/policy.Engine's "ordered rule, first match wins, else
// fallback" control flow (policy.go's Decide contract) and
// runtime/a2a/policy's allow/deny filtering idiom, narrowed from
// per-turn tool allowlisting to a one-shot model pick with an
// explainable Decision in place of a Decision carrying tool allowlists.
package router

import (
	"fmt"
	"sort"
)

type (
	// Model describes one entry in the registry.
	Model struct {
		ID           string
		Provider     string
		Capabilities []string
		Local        bool
		CostPerCall  float64
	}

	// Rule is one ordered entry in the router's policy: when its When
	// clause matches the caller's request, the first model in Prefer
	// that also survived filtering is selected.
	Rule struct {
		Name   string
		When   Constraint
		Prefer []string // model IDs, in preference order
	}

	// Constraint narrows which requests a Rule applies to.
	Constraint struct {
		Capability string
		Privacy    string // "" (any), or "local"
	}

	// Request is the caller's selection ask.
	Request struct {
		Capability    string
		RequireLocal  bool
		MaxUSD        float64 // 0 means unbounded
		ProviderAllow []string
		ModelAllow    []string
	}

	// Decision explains a Select outcome.
	Decision struct {
		Model         Model
		MatchedRule   string // rule Name, or "__fallback"
		Reason        string
		SurvivorCount int
		FiltersApplied []string
	}

	// Registry holds the known models and the ordered rule list
	// consulted during Select.
	Registry struct {
		Models []Model
		Rules  []Rule
	}
)

// FallbackRuleName is the MatchedRule value used when no rule's When
// clause matched and selection fell through to the cost/id-ascending
// sort.
const FallbackRuleName = "__fallback"

// ErrNoCandidate is returned when the initial capability/privacy/cost/
// allowlist filter leaves zero surviving models.
type ErrNoCandidate struct {
	Capability string
}

func (e *ErrNoCandidate) Error() string {
	return fmt.Sprintf("router: no candidate model for capability %q", e.Capability)
}

// Select runs the three-step algorithm from spec.md §4.9: filter,
// ordered-rule match, cost/id-ascending fallback.
func (reg Registry) Select(req Request) (Decision, error) {
	survivors, applied := reg.filter(req)
	if len(survivors) == 0 {
		return Decision{}, &ErrNoCandidate{Capability: req.Capability}
	}

	survivorByID := make(map[string]Model, len(survivors))
	for _, m := range survivors {
		survivorByID[m.ID] = m
	}

	for _, rule := range reg.Rules {
		if rule.When.Capability != "" && rule.When.Capability != req.Capability {
			continue
		}
		if rule.When.Privacy == "local" && !req.RequireLocal {
			continue
		}
		for _, id := range rule.Prefer {
			if m, ok := survivorByID[id]; ok {
				return Decision{
					Model:          m,
					MatchedRule:    rule.Name,
					Reason:         fmt.Sprintf("rule %q preferred %q and it survived filtering", rule.Name, id),
					SurvivorCount:  len(survivors),
					FiltersApplied: applied,
				}, nil
			}
		}
	}

	sorted := make([]Model, len(survivors))
	copy(sorted, survivors)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CostPerCall != sorted[j].CostPerCall {
			return sorted[i].CostPerCall < sorted[j].CostPerCall
		}
		return sorted[i].ID < sorted[j].ID
	})

	chosen := sorted[0]
	return Decision{
		Model:          chosen,
		MatchedRule:    FallbackRuleName,
		Reason:         "no rule matched; selected cheapest surviving model, ties broken by id",
		SurvivorCount:  len(survivors),
		FiltersApplied: applied,
	}, nil
}

func (reg Registry) filter(req Request) ([]Model, []string) {
	var applied []string
	if req.Capability != "" {
		applied = append(applied, "capability")
	}
	if req.RequireLocal {
		applied = append(applied, "privacy")
	}
	if req.MaxUSD > 0 {
		applied = append(applied, "max_usd")
	}
	if len(req.ProviderAllow) > 0 {
		applied = append(applied, "provider_allowlist")
	}
	if len(req.ModelAllow) > 0 {
		applied = append(applied, "model_allowlist")
	}

	var out []Model
	for _, m := range reg.Models {
		if req.Capability != "" && !hasCapability(m, req.Capability) {
			continue
		}
		if req.RequireLocal && !m.Local {
			continue
		}
		if req.MaxUSD > 0 && m.CostPerCall > req.MaxUSD {
			continue
		}
		if len(req.ProviderAllow) > 0 && !contains(req.ProviderAllow, m.Provider) {
			continue
		}
		if len(req.ModelAllow) > 0 && !contains(req.ModelAllow, m.ID) {
			continue
		}
		out = append(out, m)
	}
	return out, applied
}

func hasCapability(m Model, capability string) bool {
	return contains(m.Capabilities, capability)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
