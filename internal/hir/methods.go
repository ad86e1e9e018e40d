package hir

// Reserved method names produced by desugaring.
const (
	MethodContains = "__contains__"
	MethodIsNone   = "is_none"
	MethodIsSome   = "is_some"
)

var mutatingMethods = map[string]bool{
	"append": true, "extend": true, "insert": true, "remove": true, "pop": true,
	"popitem": true, "clear": true, "sort": true, "reverse": true, "update": true,
	"add": true, "discard": true, "setdefault": true,
	"difference_update": true, "intersection_update": true, "symmetric_difference_update": true,
}

// IsMutatingMethod reports container methods that modify their receiver.
func IsMutatingMethod(name string) bool { return mutatingMethods[name] }

var typeOnlyModules = map[string]bool{
	"typing": true, "typing_extensions": true, "__future__": true,
	"dataclasses": true, "collections.abc": true, "abc": true,
}

// IsTypeOnlyModule reports modules whose imports only affect annotations.
func IsTypeOnlyModule(name string) bool { return typeOnlyModules[name] }

var stdModules = map[string]bool{"math": true, "sys": true}

// IsStdModule reports modules whose members map onto Rust std.
func IsStdModule(name string) bool { return stdModules[name] }
