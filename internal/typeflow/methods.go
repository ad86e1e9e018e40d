package typeflow

import (
	"pyrust/internal/hir"
	"pyrust/internal/types"
)

var strToStr = set(
	"upper", "lower", "strip", "lstrip", "rstrip", "title", "capitalize", "casefold",
	"replace", "format", "center", "ljust", "rjust", "zfill", "swapcase", "join",
	"removeprefix", "removesuffix", "encode", "decode",
)

var strToBool = set(
	"startswith", "endswith", "isdigit", "isalpha", "isalnum", "isspace", "isupper",
	"islower", "istitle", "isnumeric", "isdecimal",
)

var strToInt = set("find", "rfind", "index", "rindex", "count")

var strOnly = set(
	"upper", "lower", "strip", "lstrip", "rstrip", "title", "capitalize", "replace",
	"startswith", "endswith", "split", "splitlines", "isdigit", "isalpha", "join",
	"find", "rfind", "zfill", "format",
)

var listOnly = set("append", "extend", "insert", "sort", "reverse")

var dictOnly = set("keys", "values", "items", "get", "setdefault", "popitem")

var setOnly = set("add", "discard", "union", "intersection", "difference", "issubset", "issuperset")

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// methodHint guesses the receiver shape from a method name when the
// receiver type is still unknown.
func methodHint(method string) *types.Type {
	switch {
	case strOnly[method]:
		return types.StrT
	case listOnly[method]:
		return types.ListOf(types.UnknownT)
	case dictOnly[method]:
		return types.DictOf(types.UnknownT, types.UnknownT)
	case setOnly[method]:
		return types.SetOf(types.UnknownT)
	}
	return nil
}

// methodResult types recv.method(args).
func methodResult(recv *types.Type, method string, args []*types.Type) *types.Type {
	switch method {
	case hir.MethodContains, hir.MethodIsNone, hir.MethodIsSome:
		return types.BoolT
	}
	switch recv.Kind {
	case types.Str:
		switch {
		case strToStr[method]:
			return types.StrT
		case strToBool[method]:
			return types.BoolT
		case strToInt[method]:
			return types.IntT
		case method == "split" || method == "rsplit" || method == "splitlines":
			return types.ListOf(types.StrT)
		case method == "partition" || method == "rpartition":
			return types.TupleOf(types.StrT, types.StrT, types.StrT)
		}
	case types.List:
		switch method {
		case "append", "extend", "insert", "remove", "clear", "sort", "reverse":
			return types.NoneT
		case "pop":
			return recv.Elem()
		case "index", "count":
			return types.IntT
		case "copy":
			return recv
		}
	case types.Dict:
		switch method {
		case "get":
			if len(args) > 1 {
				if args[1].Kind == types.None {
					return types.OptionalOf(recv.Value())
				}
				return types.Join(recv.Value(), args[1])
			}
			return types.OptionalOf(recv.Value())
		case "keys":
			return types.IteratorOf(recv.Elem())
		case "values":
			return types.IteratorOf(recv.Value())
		case "items":
			return types.IteratorOf(types.TupleOf(recv.Elem(), recv.Value()))
		case "pop":
			if len(args) > 1 {
				return types.Join(recv.Value(), args[1])
			}
			return recv.Value()
		case "setdefault":
			return recv.Value()
		case "popitem":
			return types.TupleOf(recv.Elem(), recv.Value())
		case "update", "clear":
			return types.NoneT
		case "copy":
			return recv
		}
	case types.Set:
		switch method {
		case "add", "discard", "remove", "clear", "update",
			"difference_update", "intersection_update", "symmetric_difference_update":
			return types.NoneT
		case "union", "intersection", "difference", "symmetric_difference", "copy":
			return recv
		case "issubset", "issuperset", "isdisjoint":
			return types.BoolT
		case "pop":
			return recv.Elem()
		}
	case types.Optional:
		switch method {
		case "unwrap":
			return recv.Elem()
		}
	}
	return types.UnknownT
}
