package codegen

import (
	"math"
	"strconv"
	"strings"

	"pyrust/internal/rust"
	"pyrust/internal/types"
)

var boxError = &types.RustType{Kind: types.RBoxError}

func resultOf(t *types.RustType) *types.RustType { return types.ResultOf(t, boxError) }

// annotatable reports types worth spelling out on a let binding: the
// mapped type must be nameable and fully known.
func annotatable(t *types.Type) bool {
	if t == nil || t.Kind == types.None {
		return false
	}
	return nameable(t)
}

func nameable(t *types.Type) bool {
	switch t.Kind {
	case types.Unknown, types.Iterator, types.TypeVar, types.Generic:
		return false
	}
	for _, e := range t.Elems {
		if !nameable(e) {
			return false
		}
	}
	return true
}

// zero returns the value a hoisted declaration starts from.
func (g *gen) zero(t *types.Type) (rust.Expr, bool) {
	if t == nil {
		return rust.L("0"), true
	}
	switch t.Kind {
	case types.Unknown, types.Int:
		return rust.L("0"), true
	case types.Float:
		return rust.L("0.0"), true
	case types.Bool:
		return rust.L("false"), true
	case types.Str:
		return rust.C("String::new"), true
	case types.List:
		return rust.C("Vec::new"), true
	case types.Dict:
		g.use("std::collections::HashMap")
		return rust.C("HashMap::new"), true
	case types.Set:
		g.use("std::collections::HashSet")
		return rust.C("HashSet::new"), true
	case types.Optional, types.None:
		return rust.P("None"), true
	case types.Tuple:
		elems := make([]rust.Expr, len(t.Elems))
		for i, e := range t.Elems {
			z, ok := g.zero(e)
			if !ok {
				return nil, false
			}
			elems[i] = z
		}
		return &rust.Tuple{Elems: elems}, true
	case types.Custom:
		return rust.C(t.Name + "::default"), true
	}
	return nil, false
}

// intText renders an integer literal.
func intText(v int64) string { return strconv.FormatInt(v, 10) }

// floatText renders a float literal that always reads as a float.
func floatText(f float64) rust.Expr {
	switch {
	case math.IsInf(f, 1):
		return rust.P("f64::INFINITY")
	case math.IsInf(f, -1):
		return rust.P("f64::NEG_INFINITY")
	case math.IsNaN(f):
		return rust.P("f64::NAN")
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return rust.L(s)
}

// strText quotes s as a Rust string literal.
func strText(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case 0:
			sb.WriteString(`\0`)
		default:
			if r < 0x20 || r == 0x7f {
				sb.WriteString(`\u{` + strconv.FormatInt(int64(r), 16) + `}`)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// fmtText escapes braces for use inside a format string.
func fmtText(s string) string {
	q := strText(s)
	q = strings.ReplaceAll(q, "{", "{{")
	return strings.ReplaceAll(q, "}", "}}")
}

// asFloatLit turns an integer literal into a float literal.
func asFloatLit(x rust.Expr) (rust.Expr, bool) {
	lit, ok := x.(*rust.Lit)
	if !ok {
		return nil, false
	}
	digits := strings.TrimPrefix(lit.Text, "-")
	if digits == "" {
		return nil, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return nil, false
		}
	}
	return rust.L(lit.Text + ".0"), true
}

// suffixed gives a numeric literal receiver an explicit type, as in
// 2_i32.pow(3).
func suffixed(x rust.Expr, r *types.RustType) rust.Expr {
	lit, ok := x.(*rust.Lit)
	if !ok || r == nil || r.Kind != types.RPrimitive {
		return x
	}
	if strings.HasPrefix(lit.Text, "\"") || lit.Text == "true" || lit.Text == "false" {
		return x
	}
	return &rust.Paren{X: rust.L(lit.Text + "_" + r.Prim.String())}
}
