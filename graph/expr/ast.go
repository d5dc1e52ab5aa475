package expr

// node is the restricted expression AST. Only the forms spec.md §4.3
// allows are representable: literals, state-variable references,
// comparisons, boolean operators, membership, and a len() call. There is
// deliberately no attribute-access or indexing node, and no general
// call node — these cannot be parsed, so they cannot be evaluated.
type node interface {
	isNode()
}

type (
	litNode struct {
		value any
	}

	identNode struct {
		name string
	}

	binaryNode struct {
		op  tokenKind
		lhs node
		rhs node
	}

	notNode struct {
		operand node
	}

	lenCallNode struct {
		arg node
	}
)

func (litNode) isNode()     {}
func (identNode) isNode()   {}
func (binaryNode) isNode()  {}
func (notNode) isNode()     {}
func (lenCallNode) isNode() {}
