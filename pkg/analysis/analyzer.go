package analysis

import (
	"fmt"

	"cscript/pkg/engine"
)

// Diagnostic is a finding of the static pass. Warnings never stop a run;
// the runtime decides what actually fails.
type Diagnostic struct {
	Severity string `json:"severity"`
	engine.ScriptError
}

type AnalysisResult struct {
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
}

type Analyzer struct {
	known map[string]bool

	bound     map[string]bool
	assigned  map[string]bool
	functions map[string][]*engine.Node
}

// NewAnalyzer builds an analyzer that treats the given names (natives and
// host-provided variables) as always defined.
func NewAnalyzer(known ...string) *Analyzer {
	a := &Analyzer{known: make(map[string]bool)}
	for _, name := range engine.BuiltinNames() {
		a.known[name] = true
	}
	for _, name := range known {
		a.known[name] = true
	}
	return a
}

// AnalyzeSource parses src and analyzes it. A syntax error is reported as
// the only error.
func (a *Analyzer) AnalyzeSource(src string) AnalysisResult {
	root, err := engine.ParseString(src)
	if err != nil {
		return AnalysisResult{Errors: []Diagnostic{{Severity: "error", ScriptError: *engine.AsScriptError(err)}}}
	}
	return a.Analyze(root)
}

func (a *Analyzer) Analyze(root *engine.Node) AnalysisResult {
	res := AnalysisResult{}
	a.bound = make(map[string]bool)
	a.assigned = make(map[string]bool)
	a.functions = make(map[string][]*engine.Node)
	a.collect(root)
	a.walk(root, &res)
	return res
}

// collect records every name the script binds anywhere. Scoping is ignored
// on purpose: this pass only flags names nothing could ever bind.
func (a *Analyzer) collect(node *engine.Node) {
	switch node.Kind {
	case engine.NodeAssignment:
		a.bound[node.Name] = true
		a.assigned[node.Name] = true
	case engine.NodeFunctionDecl:
		a.bound[node.Name] = true
		a.functions[node.Name] = append(a.functions[node.Name], node)
		for _, p := range node.Params {
			a.bound[p] = true
		}
	}
	for _, child := range node.Children {
		a.collect(child)
	}
}

func (a *Analyzer) walk(node *engine.Node, res *AnalysisResult) {
	switch node.Kind {
	case engine.NodeBlock:
		a.checkUnreachable(node.Children, res)

	case engine.NodeIdentifier:
		if !a.bound[node.Name] && !a.known[node.Name] {
			res.Warnings = append(res.Warnings, warning(engine.ErrUndefinedName, node.Span,
				fmt.Sprintf("'%s' is never assigned in this script; it must be set by the host", node.Name)))
		}

	case engine.NodeFunctionDecl:
		a.checkUnreachable(node.Children[0].Children, res)
		for _, child := range node.Children[0].Children {
			a.walk(child, res)
		}
		return

	case engine.NodeCall:
		a.checkArity(node, res)

	case engine.NodeBinary:
		if (node.Op == "/" || node.Op == "%") && isZeroLiteral(node.Children[1]) {
			res.Warnings = append(res.Warnings, warning(engine.ErrDivisionByZero, node.Span,
				"right operand is the constant 0"))
		}
	}

	for _, child := range node.Children {
		a.walk(child, res)
	}
}

func (a *Analyzer) checkUnreachable(stmts []*engine.Node, res *AnalysisResult) {
	for i, stmt := range stmts {
		if stmt.Kind == engine.NodeReturn && i+1 < len(stmts) {
			res.Warnings = append(res.Warnings, warning("Unreachable", stmts[i+1].Span,
				"unreachable statement after return"))
			return
		}
	}
}

// checkArity compares a direct call against the single declaration of that
// name. Names that are reassigned or declared twice are skipped.
func (a *Analyzer) checkArity(call *engine.Node, res *AnalysisResult) {
	callee := call.Children[0]
	if callee.Kind != engine.NodeIdentifier {
		return
	}
	decls := a.functions[callee.Name]
	if len(decls) != 1 || a.assigned[callee.Name] {
		return
	}
	want, got := len(decls[0].Params), len(call.Children)-1
	if want != got {
		res.Errors = append(res.Errors, Diagnostic{
			Severity: "error",
			ScriptError: engine.ScriptError{
				Kind: engine.ErrArityMismatch,
				Row:  call.Span.Row,
				Col:  call.Span.Col,
				Len:  call.Span.Len,
				Msg:  fmt.Sprintf("function '%s' expects %d arguments, got %d", callee.Name, want, got),
			},
		})
	}
}

func isZeroLiteral(n *engine.Node) bool {
	v, ok := n.Value.AsNumber()
	return n.Kind == engine.NodeLiteral && ok && v == 0
}

func warning(kind engine.ErrorKind, span engine.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: "warning",
		ScriptError: engine.ScriptError{
			Kind: kind,
			Row:  span.Row,
			Col:  span.Col,
			Len:  span.Len,
			Msg:  msg,
		},
	}
}
