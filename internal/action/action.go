// Package action defines the Action interface actions implement, the
// static Spec describing an action's calling convention, and the runtime
// types (ExecContext, ActionInput, ActionResult) passed between the
// execution pipeline and action bodies.
package action

import (
	"context"
	"errors"

	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/param"
	"github.com/kashrun/kash/internal/precondition"
	kasherrors "github.com/kashrun/kash/pkg/errors"
)

// ArgRange is an inclusive cardinality range for an action's expected
// argument or output count. Max of -1 means unbounded.
type ArgRange struct {
	Min int
	Max int
}

// OneArg is the cardinality range forced on run-per-item actions.
var OneArg = ArgRange{Min: 1, Max: 1}

// AnyArgs accepts any number of arguments, including zero.
var AnyArgs = ArgRange{Min: 0, Max: -1}

// Contains reports whether n falls within the range.
func (r ArgRange) Contains(n int) bool {
	if n < r.Min {
		return false
	}
	return r.Max < 0 || n <= r.Max
}

// LLMOptions carries model/provider defaults for actions that call
// component L (the LLM completion wrapper).
type LLMOptions struct {
	Model       string
	Temperature float64
	SystemMsg   string
}

// Spec is an action's static description: everything about it that does
// not depend on a particular invocation.
type Spec struct {
	Name             string
	Description      string
	Precondition     precondition.Precondition
	ExpectedArgs     ArgRange
	ExpectedOutputs  ArgRange
	Params           param.Declarations
	RunPerItem       bool
	Cacheable        bool
	UsesSelection    bool
	InteractiveInput bool
	MCPTool          bool
	TitleTemplate    string
	LLMOptions       *LLMOptions
}

// ExecContext is the runtime environment visible to an action body: the
// active action's spec, resolved parameter values, and pipeline controls
// (rerun, override-state) an action body may introspect.
type ExecContext struct {
	Ctx           context.Context
	Action        Spec
	Params        param.TypedValues
	Rerun         bool
	NoFormat      bool
	OverrideState *item.State
}

// ActionInput is the list of items fed to an action for one invocation.
type ActionInput struct {
	Items []item.Item
}

// ActionResult is what an action body returns: the items it produced,
// plus hints the execution pipeline applies after the fact.
type ActionResult struct {
	Items           []item.Item
	ReplacesInput   bool
	SkipDuplicates  bool
}

// ErrSkipItem is a sentinel an action body returns to pass its input item
// through unchanged in a per-item run, without producing a new output.
var ErrSkipItem = kasherrors.ErrSkipItem

// Action is the interface every kash action implements: a static Spec,
// and a Run method invoked by the execution pipeline.
type Action interface {
	Spec() Spec
	Run(ctx context.Context, ec *ExecContext, in ActionInput) (ActionResult, error)
}

// Preassembler is an optional action capability: given an operation
// fingerprint and its inputs, predict the store paths its outputs would
// occupy, without running the action. The execution pipeline type-asserts
// for this interface to implement rerun avoidance (spec.md §4.I step 4).
type Preassembler interface {
	Preassemble(op OperationPredictor, in ActionInput) ([]string, error)
}

// OperationPredictor is the minimal view of an operation.Operation a
// Preassembler needs, expressed without importing internal/operation
// directly to avoid a dependency cycle (operation does not depend on
// action, but keeping the interface here lets action stay leaf-level).
type OperationPredictor interface {
	AsStr() string
}

// perItemAction adapts a per-item function into a full Action, the Go
// analogue of the reference implementation's "wraps a fn(Item)" decorator
// rule: it forces RunPerItem=true and a one-argument/one-output
// cardinality.
type perItemAction struct {
	spec Spec
	fn   func(context.Context, *ExecContext, item.Item) (item.Item, error)
}

// PerItem builds an Action from a function processing one item at a time.
// The returned Action always has RunPerItem=true, ExpectedArgs=OneArg,
// ExpectedOutputs=OneArg regardless of what spec.RunPerItem/ExpectedArgs/
// ExpectedOutputs were set to — this mirrors the reference
// implementation's decorator forcing those fields when the first
// parameter is an Item rather than an ActionInput.
func PerItem(spec Spec, fn func(context.Context, *ExecContext, item.Item) (item.Item, error)) Action {
	spec.RunPerItem = true
	spec.ExpectedArgs = OneArg
	spec.ExpectedOutputs = OneArg
	return perItemAction{spec: spec, fn: fn}
}

func (a perItemAction) Spec() Spec { return a.spec }

func (a perItemAction) Run(ctx context.Context, ec *ExecContext, in ActionInput) (ActionResult, error) {
	if len(in.Items) != 1 {
		return ActionResult{}, &invalidArgCountError{name: a.spec.Name, got: len(in.Items), want: OneArg}
	}
	out, err := a.fn(ctx, ec, in.Items[0])
	if err != nil {
		if errors.Is(err, ErrSkipItem) {
			return ActionResult{Items: []item.Item{in.Items[0]}}, nil
		}
		return ActionResult{}, err
	}
	return ActionResult{Items: []item.Item{out}}, nil
}

type invalidArgCountError struct {
	name string
	got  int
	want ArgRange
}

func (e *invalidArgCountError) Error() string {
	return "action " + e.name + ": per-item action requires exactly one input item"
}
