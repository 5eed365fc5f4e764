// Package bridge routes logical evaluation and introspection requests
// to the transport that can carry them and normalizes every outcome
// into a single result shape.
package bridge

import "fmt"

// Op enumerates the operations the bridge can carry. The set is closed:
// the dispatch table in routes covers every value, so adding an
// operation without a route is caught by tests rather than at runtime.
type Op int

const (
	// OpEval evaluates an expression through the NeoConsole session.
	OpEval Op = iota
	// OpSimpleEval evaluates an expression via a one-shot VM process.
	OpSimpleEval
	// OpMetric reads a runtime metric from the image.
	OpMetric
	// OpClassComment fetches a class comment.
	OpClassComment
	// OpClassDefinition fetches a class definition string.
	OpClassDefinition
	// OpMethodList lists a class's method selectors.
	OpMethodList
	// OpMethodSource fetches one method's source code.
	OpMethodSource
	// OpInstallPackage loads a package through Metacello.
	OpInstallPackage
)

func (o Op) String() string {
	switch o {
	case OpEval:
		return "eval"
	case OpSimpleEval:
		return "simple_eval"
	case OpMetric:
		return "metric"
	case OpClassComment:
		return "class_comment"
	case OpClassDefinition:
		return "class_definition"
	case OpMethodList:
		return "method_list"
	case OpMethodSource:
		return "method_source"
	case OpInstallPackage:
		return "install_package"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Parameter names used across operations.
const (
	ParamExpression = "expression"
	ParamCommand    = "command"
	ParamMetric     = "metric"
	ParamClassName  = "class_name"
	ParamSelector   = "selector"
	ParamBaseline   = "baseline"
	ParamRepository = "repository"
)

// Request is one logical operation plus its parameters. Build it once
// and treat it as immutable; the dispatcher never mutates it.
type Request struct {
	Op     Op
	Params map[string]string
}

// NewRequest builds a request. A nil params map is treated as empty.
func NewRequest(op Op, params map[string]string) Request {
	if params == nil {
		params = map[string]string{}
	}
	return Request{Op: op, Params: params}
}

// required lists the parameters each operation must carry, checked
// before any transport is touched.
var required = map[Op][]string{
	OpEval:            {ParamExpression},
	OpSimpleEval:      {ParamExpression},
	OpMetric:          {ParamMetric},
	OpClassComment:    {ParamClassName},
	OpClassDefinition: {ParamClassName},
	OpMethodList:      {ParamClassName},
	OpMethodSource:    {ParamClassName, ParamSelector},
	OpInstallPackage:  {ParamBaseline, ParamRepository},
}

// Validate reports the first missing or empty required parameter.
func (r Request) Validate() *Error {
	for _, name := range required[r.Op] {
		if r.Params[name] == "" {
			return &Error{
				Kind:    InvalidRequest,
				Message: fmt.Sprintf("%s: required parameter %q is missing or empty", r.Op, name),
			}
		}
	}
	return nil
}
