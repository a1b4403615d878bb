// Package roster reconciles the face model against the authoritative list
// of enrolled soldiers. The check is advisory: it reports divergence, it
// never mutates either side.
package roster

import (
	"context"
	"fmt"
	"sort"
)

// Roster lists the identity tokens that should be enrolled, per the system
// of record.
type Roster interface {
	Enrolled(ctx context.Context) ([]string, error)
}

// Modeled lists the identity tokens present in the committed model. The
// model store's Info satisfies it via a small adapter; tests use literals.
type Modeled interface {
	Identities() ([]string, error)
}

// CheckResult reports how the model and the roster diverge.
type CheckResult struct {
	Consistent   bool     `json:"consistent"`
	ModelCount   int      `json:"model_count"`
	RosterCount  int      `json:"roster_count"`
	OnlyInModel  []string `json:"only_in_model,omitempty"`
	OnlyInRoster []string `json:"only_in_roster,omitempty"`
	Issues       []string `json:"issues,omitempty"`
}

// Check compares both sides and reports every token present in exactly one.
func Check(ctx context.Context, roster Roster, modeled Modeled) (CheckResult, error) {
	enrolled, err := roster.Enrolled(ctx)
	if err != nil {
		return CheckResult{}, fmt.Errorf("roster: list enrolled: %w", err)
	}
	inModel, err := modeled.Identities()
	if err != nil {
		return CheckResult{}, fmt.Errorf("roster: list modeled: %w", err)
	}

	rosterSet := make(map[string]struct{}, len(enrolled))
	for _, token := range enrolled {
		rosterSet[token] = struct{}{}
	}
	modelSet := make(map[string]struct{}, len(inModel))
	for _, token := range inModel {
		modelSet[token] = struct{}{}
	}

	res := CheckResult{
		ModelCount:  len(modelSet),
		RosterCount: len(rosterSet),
	}
	for token := range modelSet {
		if _, ok := rosterSet[token]; !ok {
			res.OnlyInModel = append(res.OnlyInModel, token)
		}
	}
	for token := range rosterSet {
		if _, ok := modelSet[token]; !ok {
			res.OnlyInRoster = append(res.OnlyInRoster, token)
		}
	}
	sort.Strings(res.OnlyInModel)
	sort.Strings(res.OnlyInRoster)

	if len(res.OnlyInModel) > 0 {
		res.Issues = append(res.Issues, fmt.Sprintf(
			"%d identities in model but not on roster", len(res.OnlyInModel)))
	}
	if len(res.OnlyInRoster) > 0 {
		res.Issues = append(res.Issues, fmt.Sprintf(
			"%d roster identities missing from model", len(res.OnlyInRoster)))
	}
	res.Consistent = len(res.Issues) == 0
	return res, nil
}

// StaticRoster is a fixed token list; useful for tests and file-backed
// deployments.
type StaticRoster []string

func (r StaticRoster) Enrolled(context.Context) ([]string, error) { return r, nil }

// ModeledFunc adapts a function to the Modeled interface.
type ModeledFunc func() ([]string, error)

func (f ModeledFunc) Identities() ([]string, error) { return f() }
