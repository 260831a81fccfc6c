package engine

// Span locates a token or node in the source: 1-based row and column,
// length in runes.
type Span struct {
	Row int `json:"row"`
	Col int `json:"col"`
	Len int `json:"len"`
}

// Through extends s to the end of other when both sit on the same row.
// Spans crossing lines keep s unchanged.
func (s Span) Through(other Span) Span {
	if other.Row != s.Row || other.Col+other.Len <= s.Col {
		return s
	}
	return Span{Row: s.Row, Col: s.Col, Len: other.Col + other.Len - s.Col}
}

type NodeKind int

const (
	NodeLiteral NodeKind = iota
	NodeIdentifier
	NodeBinary
	NodeUnary
	NodeAssignment
	NodeBlock
	NodeIf
	NodeWhile
	NodeFunctionDecl
	NodeCall
	NodeReturn
)

var nodeKindNames = [...]string{
	NodeLiteral:      "Literal",
	NodeIdentifier:   "Identifier",
	NodeBinary:       "Binary",
	NodeUnary:        "Unary",
	NodeAssignment:   "Assignment",
	NodeBlock:        "Block",
	NodeIf:           "If",
	NodeWhile:        "While",
	NodeFunctionDecl: "FunctionDecl",
	NodeCall:         "Call",
	NodeReturn:       "Return",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "Unknown"
}

// Node is a single AST node. Which fields are set depends on Kind:
//
//	Literal       Value
//	Identifier    Name
//	Binary        Op, Children[0] left, Children[1] right
//	Unary         Op, Children[0] operand
//	Assignment    Name, Declare, Children[0] value (absent for a bare "var x")
//	Block         Children statements
//	If            Children[0] cond, [1] then, optional [2] else
//	While         Children[0] cond, [1] body
//	FunctionDecl  Name, Params, Children[0] body block
//	Call          Children[0] callee, Children[1:] arguments
//	Return        optional Children[0] value
type Node struct {
	Kind     NodeKind
	Span     Span
	Name     string
	Op       string
	Value    Value
	Declare  bool
	Params   []string
	Children []*Node
}
