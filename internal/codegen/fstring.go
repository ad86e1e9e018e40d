package codegen

import (
	"fmt"
	"strings"

	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/types"
)

// placeholder returns the format! placeholder for one interpolated value.
// conv is the f-string conversion ('r', 's' or 0) and spec the Python
// format spec.
func (fc *fnCtx) placeholder(t *types.Type, conv byte, spec string) (string, error) {
	rs, err := formatSpec(spec)
	if err != nil {
		return "", err
	}
	debug := conv == 'r'
	if t != nil && rs == "" {
		switch t.Kind {
		case types.Float, types.List, types.Dict, types.Set, types.Tuple, types.Optional, types.None:
			debug = true
		case types.Custom:
			debug = !fc.hasDisplay(t.Name)
		}
	}
	switch {
	case debug && rs == "":
		return "{:?}", nil
	case debug:
		return "{:" + rs + "?}", nil
	case rs == "":
		return "{}", nil
	}
	return "{:" + rs + "}", nil
}

// formatSpec translates a Python format spec into Rust's syntax. Fill,
// alignment, sign, width and precision carry over; the presentation types
// d, s and f are implied by the argument type.
func formatSpec(spec string) (string, error) {
	if spec == "" {
		return "", nil
	}
	if strings.Contains(spec, ",") || strings.Contains(spec, "_") {
		return "", fmt.Errorf("digit grouping in format spec %q", spec)
	}
	body, kind := spec, byte(0)
	if last := spec[len(spec)-1]; strings.IndexByte("dsfFeExXobg%n", last) >= 0 {
		body, kind = spec[:len(spec)-1], last
	}
	switch kind {
	case 0, 'd', 's', 'f', 'F':
		return body, nil
	case 'e', 'E', 'x', 'X', 'o', 'b':
		return body + string(kind), nil
	}
	return "", fmt.Errorf("format type %q", string(kind))
}

func (fc *fnCtx) fstring(d hir.FStringData) (value, error) {
	var sb strings.Builder
	var args []rust.Expr
	for _, p := range d.Parts {
		if p.Value == nil {
			q := fmtText(p.Lit)
			sb.WriteString(q[1 : len(q)-1])
			continue
		}
		x, ph, err := fc.formatArg(p.Value, p.Conv, p.Spec)
		if err != nil {
			return value{}, err
		}
		sb.WriteString(ph)
		args = append(args, x)
	}
	return temp(&rust.Macro{Name: "format", Args: append([]rust.Expr{rust.L(`"` + sb.String() + `"`)}, args...)}, types.StrT), nil
}

// formatArg lowers one interpolated value with its placeholder.
func (fc *fnCtx) formatArg(e *hir.Expr, conv byte, spec string) (rust.Expr, string, error) {
	v, err := fc.expr(e)
	if err != nil {
		return nil, "", err
	}
	if v.t != nil && v.t.Kind == types.Optional && conv != 'r' {
		return fc.formatOptional(e, v, spec)
	}
	ph, err := fc.placeholder(v.t, conv, spec)
	if err != nil {
		return nil, "", diag.Errorf(diag.CodeGenError, e.Span, "%v", err)
	}
	x := v.x
	if v.t != nil && v.t.Kind == types.Bool && conv != 'r' {
		x = boolText(fc.operand(v))
	}
	return x, ph, nil
}

// formatOptional renders the held value, or None, the way str() does.
func (fc *fnCtx) formatOptional(e *hir.Expr, v value, spec string) (rust.Expr, string, error) {
	elem := v.t.Elem()
	ph, err := fc.placeholder(elem, 0, spec)
	if err != nil {
		return nil, "", diag.Errorf(diag.CodeGenError, e.Span, "%v", err)
	}
	var some rust.Expr = rust.P("__some")
	if elem.Kind == types.Bool {
		some = boolText(&rust.Unary{Op: "*", X: some})
	}
	x := &rust.Match{X: &rust.Ref{X: v.x}, Arms: []rust.Arm{
		{Pat: &rust.VariantPat{Path: "Some", Elems: []rust.Pat{rust.Var("__some")}}, Body: &rust.Macro{Name: "format", Args: []rust.Expr{rust.L(`"` + ph + `"`), some}}},
		{Pat: &rust.LitPat{Text: "None"}, Body: rust.M(rust.L(`"None"`), "to_string")},
	}}
	return x, "{}", nil
}

// printCall lowers print(*args, sep=, end=).
func (fc *fnCtx) printCall(e *hir.Expr, d hir.CallData) (value, error) {
	sep, end := " ", "\n"
	for _, kw := range d.Kwargs {
		lit, ok := kw.Value.Data.(hir.LiteralData)
		if !ok || lit.Kind != hir.LiteralStr {
			return value{}, diag.Errorf(diag.CodeGenError, kw.Value.Span, "print %s= must be a string literal", kw.Name)
		}
		switch kw.Name {
		case "sep":
			sep = lit.Str
		case "end":
			end = lit.Str
		default:
			return value{}, diag.Errorf(diag.CodeGenError, kw.Value.Span, "print keyword %s", kw.Name)
		}
	}
	var sb strings.Builder
	var args []rust.Expr
	sepText := fmtText(sep)
	sepText = sepText[1 : len(sepText)-1]
	for i, a := range d.Args {
		if i > 0 {
			sb.WriteString(sepText)
		}
		if lit, ok := a.Data.(hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			q := fmtText(lit.Str)
			sb.WriteString(q[1 : len(q)-1])
			continue
		}
		x, ph, err := fc.formatArg(a, 0, "")
		if err != nil {
			return value{}, err
		}
		sb.WriteString(ph)
		args = append(args, x)
	}
	name := "println"
	if end != "\n" {
		name = "print"
		q := fmtText(end)
		sb.WriteString(q[1 : len(q)-1])
	}
	format := rust.L(`"` + sb.String() + `"`)
	if sb.Len() == 0 && name == "println" {
		return temp(&rust.Macro{Name: name}, types.NoneT), nil
	}
	return temp(&rust.Macro{Name: name, Args: append([]rust.Expr{format}, args...)}, types.NoneT), nil
}
