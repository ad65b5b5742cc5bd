package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DecisionNodeType distinguishes structural roles within a decision tree.
type DecisionNodeType string

const (
	DecisionRoot   DecisionNodeType = "root"
	DecisionBranch DecisionNodeType = "branch"
	DecisionLeaf   DecisionNodeType = "leaf"
)

// Outcome categories carried by decision leaves.
const (
	OutcomeApprove = "approve"
	OutcomeDecline = "decline"
	OutcomeRefer   = "refer"
)

// Operator is a comparison operator usable in a decision condition clause.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNe      Operator = "ne"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIn      Operator = "in"
	OpBetween Operator = "between"
)

// Clause compares one named input field against a value, a range or a set.
type Clause struct {
	Field   string   `json:"field"`
	Op      Operator `json:"op"`
	Value   any      `json:"value,omitempty"`   // eq/ne/gt/gte/lt/lte
	Low     float64  `json:"low,omitempty"`     // between
	High    float64  `json:"high,omitempty"`    // between
	Options []string `json:"options,omitempty"` // in
}

// Condition is a conjunction of clauses over named case-parameter fields.
type Condition struct {
	Clauses []Clause `json:"clauses"`
}

// Evaluate checks the condition against the supplied case parameters.
// The second return value lists fields that were absent; when it is
// non-empty the condition is indeterminate and the boolean result is
// meaningless.
func (c *Condition) Evaluate(params map[string]any) (bool, []string) {
	var missing []string
	result := true
	for _, cl := range c.Clauses {
		v, ok := params[cl.Field]
		if !ok {
			missing = append(missing, cl.Field)
			continue
		}
		if !cl.holds(v) {
			result = false
		}
	}
	if len(missing) > 0 {
		return false, missing
	}
	return result, nil
}

// String renders the condition for explanations, e.g. "fico_score >= 680".
func (c *Condition) String() string {
	parts := make([]string, 0, len(c.Clauses))
	for _, cl := range c.Clauses {
		switch cl.Op {
		case OpBetween:
			parts = append(parts, fmt.Sprintf("%s in [%g, %g]", cl.Field, cl.Low, cl.High))
		case OpIn:
			parts = append(parts, fmt.Sprintf("%s in {%s}", cl.Field, strings.Join(cl.Options, ", ")))
		default:
			parts = append(parts, fmt.Sprintf("%s %s %v", cl.Field, opSymbol(cl.Op), cl.Value))
		}
	}
	return strings.Join(parts, " and ")
}

func opSymbol(op Operator) string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	}
	return string(op)
}

func (cl *Clause) holds(v any) bool {
	switch cl.Op {
	case OpEq:
		return compareEqual(v, cl.Value)
	case OpNe:
		return !compareEqual(v, cl.Value)
	case OpGt, OpGte, OpLt, OpLte:
		a, aok := toFloat(v)
		b, bok := toFloat(cl.Value)
		if !aok || !bok {
			return false
		}
		switch cl.Op {
		case OpGt:
			return a > b
		case OpGte:
			return a >= b
		case OpLt:
			return a < b
		default:
			return a <= b
		}
	case OpIn:
		s := strings.ToLower(fmt.Sprintf("%v", v))
		for _, opt := range cl.Options {
			if strings.ToLower(opt) == s {
				return true
			}
		}
		return false
	case OpBetween:
		a, ok := toFloat(v)
		if !ok {
			return false
		}
		return a >= cl.Low && a <= cl.High
	}
	return false
}

func compareEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return strings.EqualFold(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(n, "%"), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// DecisionOutcome is the terminal leaf decision of a tree path.
type DecisionOutcome struct {
	Category   string   `json:"category"` // approve/decline/refer
	Confidence float64  `json:"confidence"`
	Frequency  int      `json:"frequency,omitempty"`
	Actions    []string `json:"actions,omitempty"` // supporting action list
}

// DecisionNode is one node of a qualification workflow tree. Branch and
// root nodes carry a condition plus successors; leaf nodes carry an outcome.
type DecisionNode struct {
	ID          uuid.UUID        `json:"id"`
	TreeID      uuid.UUID        `json:"tree_id"`
	Type        DecisionNodeType `json:"type"`
	Label       string           `json:"label"`
	Condition   *Condition       `json:"condition,omitempty"`
	TrueID      *uuid.UUID       `json:"true_id,omitempty"`
	FalseID     *uuid.UUID       `json:"false_id,omitempty"`
	ExceptionID *uuid.UUID       `json:"exception_id,omitempty"`
	Outcome     *DecisionOutcome `json:"outcome,omitempty"`
}

// DecisionTree is a rooted qualification/eligibility workflow. A tree is
// complete only if every root-to-leaf path terminates in an outcome.
type DecisionTree struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Summary   string    `json:"summary,omitempty"`
	RootID    uuid.UUID `json:"root_id"`
	NodeCount int       `json:"node_count"`
	LeafCount int       `json:"leaf_count"`
	Complete  bool      `json:"complete"`
	Package   string    `json:"package,omitempty"`
}
