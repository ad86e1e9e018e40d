package hir

import (
	"strings"

	"pyrust/internal/ast"
	"pyrust/internal/types"
)

// annotationType converts an annotation expression. Annotations it cannot
// interpret become Unknown rather than failing the function.
func (l *lowerer) annotationType(e ast.Expr) *types.Type {
	switch x := e.(type) {
	case nil:
		return types.UnknownT
	case *ast.Constant:
		switch x.Kind {
		case ast.ConstNone:
			return types.NoneT
		case ast.ConstStr:
			// Forward reference: "Node".
			return l.namedType(strings.TrimSpace(x.Value))
		}
	case *ast.Name:
		return l.namedType(x.ID)
	case *ast.Attribute:
		if n, ok := x.Value.(*ast.Name); ok && (n.ID == "typing" || n.ID == "t") {
			return l.namedType(x.Attr)
		}
	case *ast.BinOp:
		if x.Op == ast.BitOr {
			return unionOf([]*types.Type{l.annotationType(x.Left), l.annotationType(x.Right)})
		}
	case *ast.Subscript:
		return l.subscriptType(x)
	}
	return types.UnknownT
}

func (l *lowerer) namedType(name string) *types.Type {
	switch name {
	case "int":
		return types.IntT
	case "float":
		return types.FloatT
	case "str", "bytes":
		return types.StrT
	case "bool":
		return types.BoolT
	case "None":
		return types.NoneT
	case "list", "List", "Sequence", "MutableSequence":
		return types.ListOf(types.UnknownT)
	case "dict", "Dict", "Mapping", "MutableMapping":
		return types.DictOf(types.UnknownT, types.UnknownT)
	case "set", "Set", "frozenset", "FrozenSet":
		return types.SetOf(types.UnknownT)
	case "tuple", "Tuple":
		return types.TupleOf()
	case "Iterator", "Iterable", "Generator":
		return types.IteratorOf(types.UnknownT)
	case "Any", "object", "Callable":
		return types.UnknownT
	}
	if l.typeVars[name] {
		return types.TypeVarT(name)
	}
	if l.classes[name] || IsExceptionName(name) {
		return types.CustomT(name)
	}
	return types.UnknownT
}

func (l *lowerer) subscriptType(x *ast.Subscript) *types.Type {
	var args []*types.Type
	var raw []ast.Expr
	if tu, ok := x.Index.(*ast.Tuple); ok {
		raw = tu.Elts
	} else {
		raw = []ast.Expr{x.Index}
	}
	for _, a := range raw {
		args = append(args, l.annotationType(a))
	}
	arg := func(i int) *types.Type {
		if i < len(args) {
			return args[i]
		}
		return types.UnknownT
	}
	var base string
	switch b := x.Value.(type) {
	case *ast.Name:
		base = b.ID
	case *ast.Attribute:
		base = b.Attr
	default:
		return types.UnknownT
	}
	switch base {
	case "list", "List", "Sequence", "MutableSequence":
		return types.ListOf(arg(0))
	case "set", "Set", "frozenset", "FrozenSet":
		return types.SetOf(arg(0))
	case "dict", "Dict", "Mapping", "MutableMapping":
		return types.DictOf(arg(0), arg(1))
	case "tuple", "Tuple":
		// Tuple[int, ...] is a homogeneous variable-length sequence.
		if len(raw) == 2 {
			if c, ok := raw[1].(*ast.Constant); ok && c.Kind == ast.ConstEllipsis {
				return types.ListOf(arg(0))
			}
		}
		return types.TupleOf(args...)
	case "Optional":
		return types.OptionalOf(arg(0))
	case "Union":
		return unionOf(args)
	case "Iterator", "Iterable", "Generator":
		return types.IteratorOf(arg(0))
	case "Callable", "Type", "ClassVar", "Final":
		return types.UnknownT
	}
	if l.classes[base] {
		return types.GenericOf(base, args...)
	}
	return types.UnknownT
}

// unionOf supports Union[T, None] only; wider unions are Unknown.
func unionOf(members []*types.Type) *types.Type {
	var rest []*types.Type
	hasNone := false
	for _, m := range members {
		if m.Kind == types.None {
			hasNone = true
			continue
		}
		rest = append(rest, m)
	}
	if len(rest) != 1 {
		return types.UnknownT
	}
	if hasNone {
		return types.OptionalOf(rest[0])
	}
	return rest[0]
}
