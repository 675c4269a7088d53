package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/mqfacade/pkg/mqerr"
)

// Where is a compiled boolean predicate over an attribute record, e.g.
// `QUEUE_DEPTH > 100 && !ADMIN`. Attributes missing from a record are nil.
type Where struct {
	src     string
	program *vm.Program
}

// CompileWhere compiles a predicate. An empty source yields nil, which
// matches every record.
func CompileWhere(src string) (*Where, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "filter.where", "compile %q: %v", src, err)
	}
	return &Where{src: src, program: program}, nil
}

// Match evaluates the predicate against record.
func (w *Where) Match(record map[string]any) (bool, error) {
	if w == nil {
		return true, nil
	}
	out, err := expr.Run(w.program, record)
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", w.src, err)
	}
	b, _ := out.(bool)
	return b, nil
}

// String returns the predicate source.
func (w *Where) String() string {
	if w == nil {
		return ""
	}
	return w.src
}
