// Package policy decides what happens when a caller dispatches an operation
// whose class already has a call in flight. The single pending slot per
// class means somebody has to lose: either the new request is denied, or
// the stale call is preempted (rejected) to make room. Rules are small
// boolean expressions evaluated against the dispatch at hand, so the choice
// is configurable per deployment rather than baked in.
package policy

import (
	"fmt"
	"sort"

	"github.com/Knetic/govaluate"
)

// Decision is the outcome of evaluating the dispatch rules.
type Decision struct {
	// DenyDispatch rejects the new request and leaves the pending call
	// untouched.
	DenyDispatch bool
	// PreemptPending rejects the stale pending call before registering the
	// new one.
	PreemptPending bool
	// Reason names the rule that produced the decision, for logging and
	// caller-facing messages.
	Reason string
}

// Rule pairs a boolean expression with the decision to apply when it
// matches. Expressions see these parameters:
//
//	operation      string  operation class name ("login", "checkout", ...)
//	pending        bool    whether a call is already in flight for the class
//	pending_age_ms float64 age of the in-flight call, 0 when none
//	amount         float64 request amount, 0 for amountless operations
type Rule struct {
	ID         string
	Expression string
	Priority   int // lower evaluates first
	Decision   Decision
}

type compiledRule struct {
	rule Rule
	expr *govaluate.EvaluableExpression
}

// Enforcer evaluates dispatch rules in priority order; the first match
// wins. With no rules, or no match, the default decision preempts the
// stale call so no caller is ever stranded waiting on a slot that was
// silently overwritten.
type Enforcer struct {
	rules []compiledRule
}

// DefaultDecision is applied when no rule matches.
var DefaultDecision = Decision{PreemptPending: true, Reason: "default_preempt_stale"}

// NewEnforcer compiles the given rules. A rule with an empty or invalid
// expression is a configuration error.
func NewEnforcer(rules []Rule) (*Enforcer, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Expression == "" {
			return nil, fmt.Errorf("policy rule %q has an empty expression", r.ID)
		}
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed to compile policy rule %q: %w", r.ID, err)
		}
		compiled = append(compiled, compiledRule{rule: r, expr: expr})
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rule.Priority < compiled[j].rule.Priority
	})
	return &Enforcer{rules: compiled}, nil
}

// Evaluate runs the rules against the dispatch parameters.
func (e *Enforcer) Evaluate(params map[string]any) (Decision, error) {
	for _, cr := range e.rules {
		result, err := cr.expr.Evaluate(params)
		if err != nil {
			return Decision{}, fmt.Errorf("evaluating policy rule %q: %w", cr.rule.ID, err)
		}
		matched, ok := result.(bool)
		if !ok {
			return Decision{}, fmt.Errorf("policy rule %q did not evaluate to a boolean", cr.rule.ID)
		}
		if matched {
			d := cr.rule.Decision
			if d.Reason == "" {
				d.Reason = cr.rule.ID
			}
			return d, nil
		}
	}
	return DefaultDecision, nil
}
