package typeflow

import (
	"strings"

	"pyrust/internal/hir"
	"pyrust/internal/types"
)

// builtinSig computes the result type of a builtin from its argument types.
type builtinSig func(args []*types.Type) *types.Type

func arg(args []*types.Type, i int) *types.Type {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return types.UnknownT
}

func constant(t *types.Type) builtinSig {
	return func([]*types.Type) *types.Type { return t }
}

func joinAll(ts []*types.Type) *types.Type {
	acc := types.UnknownT
	for _, t := range ts {
		acc = types.Join(acc, t)
	}
	return acc
}

func numericOr(t, fallback *types.Type) *types.Type {
	if t.IsNumeric() {
		if t.Kind == types.Bool {
			return types.IntT
		}
		return t
	}
	return fallback
}

var builtins = map[string]builtinSig{
	"len":   constant(types.IntT),
	"print": constant(types.NoneT),
	"range": constant(types.IteratorOf(types.IntT)),
	"abs":   func(a []*types.Type) *types.Type { return numericOr(arg(a, 0), types.UnknownT) },
	"min":   minMax,
	"max":   minMax,
	"sum": func(a []*types.Type) *types.Type {
		elem := arg(a, 0).IterElem()
		if len(a) > 1 {
			elem = types.Join(elem, a[1])
		}
		return numericOr(elem, types.UnknownT)
	},
	"sorted":    func(a []*types.Type) *types.Type { return types.ListOf(arg(a, 0).IterElem()) },
	"reversed":  func(a []*types.Type) *types.Type { return types.IteratorOf(arg(a, 0).IterElem()) },
	"enumerate": func(a []*types.Type) *types.Type { return types.IteratorOf(types.TupleOf(types.IntT, arg(a, 0).IterElem())) },
	"zip": func(a []*types.Type) *types.Type {
		elems := make([]*types.Type, len(a))
		for i, t := range a {
			elems[i] = t.IterElem()
		}
		return types.IteratorOf(types.TupleOf(elems...))
	},
	"list": func(a []*types.Type) *types.Type { return types.ListOf(arg(a, 0).IterElem()) },
	"set":  func(a []*types.Type) *types.Type { return types.SetOf(arg(a, 0).IterElem()) },
	"dict": func(a []*types.Type) *types.Type {
		src := arg(a, 0)
		if src.Kind == types.Dict {
			return src
		}
		if pair := src.IterElem(); pair.Kind == types.Tuple && len(pair.Elems) == 2 {
			return types.DictOf(pair.Elems[0], pair.Elems[1])
		}
		return types.DictOf(types.UnknownT, types.UnknownT)
	},
	"tuple":      func(a []*types.Type) *types.Type { return types.ListOf(arg(a, 0).IterElem()) },
	"iter":       func(a []*types.Type) *types.Type { return types.IteratorOf(arg(a, 0).IterElem()) },
	"next":       func(a []*types.Type) *types.Type { return arg(a, 0).IterElem() },
	"filter":     func(a []*types.Type) *types.Type { return types.IteratorOf(arg(a, 1).IterElem()) },
	"map":        constant(types.IteratorOf(types.UnknownT)),
	"str":        constant(types.StrT),
	"repr":       constant(types.StrT),
	"format":     constant(types.StrT),
	"input":      constant(types.StrT),
	"chr":        constant(types.StrT),
	"hex":        constant(types.StrT),
	"bin":        constant(types.StrT),
	"oct":        constant(types.StrT),
	"int":        constant(types.IntT),
	"ord":        constant(types.IntT),
	"hash":       constant(types.IntT),
	"float":      constant(types.FloatT),
	"bool":       constant(types.BoolT),
	"any":        constant(types.BoolT),
	"all":        constant(types.BoolT),
	"isinstance": constant(types.BoolT),
	"callable":   constant(types.BoolT),
	"round": func(a []*types.Type) *types.Type {
		if len(a) > 1 {
			return types.FloatT
		}
		return types.IntT
	},
	"pow": func(a []*types.Type) *types.Type {
		if arg(a, 0).Kind == types.Float || arg(a, 1).Kind == types.Float {
			return types.FloatT
		}
		return types.IntT
	},
	"divmod": func(a []*types.Type) *types.Type {
		if arg(a, 0).Kind == types.Float || arg(a, 1).Kind == types.Float {
			return types.TupleOf(types.FloatT, types.FloatT)
		}
		return types.TupleOf(types.IntT, types.IntT)
	},

	"math.floor": constant(types.IntT),
	"math.ceil":  constant(types.IntT),
	"math.trunc": constant(types.IntT),
	"math.gcd":   constant(types.IntT),
	"math.isclose": constant(types.BoolT),
	"math.isnan":   constant(types.BoolT),
	"math.isinf":   constant(types.BoolT),
	"sys.exit":     constant(types.NoneT),
}

var floatMath = []string{
	"sqrt", "sin", "cos", "tan", "asin", "acos", "atan", "atan2", "exp", "log",
	"log2", "log10", "fabs", "pow", "hypot", "radians", "degrees", "sinh", "cosh", "tanh", "copysign",
}

func init() {
	for _, name := range floatMath {
		builtins["math."+name] = constant(types.FloatT)
	}
}

func minMax(a []*types.Type) *types.Type {
	if len(a) == 1 {
		return a[0].IterElem()
	}
	return joinAll(a)
}

// LookupBuiltin reports whether name is a known builtin or std function.
func LookupBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// moduleValue types std module constants such as math.pi.
func moduleValue(name string) (*types.Type, bool) {
	switch name {
	case "math.pi", "math.e", "math.tau", "math.inf", "math.nan":
		return types.FloatT, true
	case "sys.maxsize":
		return types.IntT, true
	case "sys.argv":
		return types.ListOf(types.StrT), true
	}
	if strings.HasPrefix(name, "math.") || strings.HasPrefix(name, "sys.") {
		return types.UnknownT, true
	}
	return nil, false
}

// exceptionCall types a call to an exception class constructor.
func exceptionCall(name string) (*types.Type, bool) {
	if hir.IsExceptionName(name) {
		return types.CustomT(name), true
	}
	return nil, false
}
