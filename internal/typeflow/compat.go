package typeflow

import "pyrust/internal/types"

// compatible reports whether a value of type actual may flow into a slot
// declared as want. Unknown is compatible with everything.
func compatible(want, actual *types.Type) bool {
	if want.IsUnknown() || actual.IsUnknown() {
		return true
	}
	switch want.Kind {
	case types.TypeVar:
		return true
	case types.Optional:
		if actual.Kind == types.None {
			return true
		}
		if actual.Kind == types.Optional {
			return compatible(want.Elem(), actual.Elem())
		}
		return compatible(want.Elem(), actual)
	case types.Float:
		return actual.Kind == types.Float || actual.Kind == types.Int || actual.Kind == types.Bool
	case types.Int:
		return actual.Kind == types.Int || actual.Kind == types.Bool
	case types.Iterator:
		switch actual.Kind {
		case types.Iterator, types.List, types.Set, types.Dict, types.Str, types.Tuple:
			return compatible(want.Elem(), actual.IterElem())
		}
		return false
	}
	if want.Kind != actual.Kind {
		return false
	}
	switch want.Kind {
	case types.Custom:
		return want.Name == actual.Name
	case types.Generic:
		if want.Name != actual.Name {
			return false
		}
	case types.Tuple:
		if len(want.Elems) == 0 || len(actual.Elems) == 0 {
			return true
		}
		if len(want.Elems) != len(actual.Elems) {
			return false
		}
	}
	for i := range want.Elems {
		if i < len(actual.Elems) && !compatible(want.Elems[i], actual.Elems[i]) {
			return false
		}
	}
	return true
}

// conflicting reports two known types that cannot share one binding.
func conflicting(a, b *types.Type) bool {
	if a.Kind == types.None || b.Kind == types.None {
		return false
	}
	return !compatible(a, b) && !compatible(b, a)
}
