package types

import "testing"

func TestMapStructural(t *testing.T) {
	cfg := MapConfig{IntWidth: WidthI32, Strings: InferBorrowing}
	tests := []struct {
		in   *Type
		want string
	}{
		{IntT, "i32"},
		{FloatT, "f64"},
		{StrT, "String"},
		{BoolT, "bool"},
		{NoneT, "()"},
		{ListOf(IntT), "Vec<i32>"},
		{DictOf(StrT, ListOf(FloatT)), "HashMap<String, Vec<f64>>"},
		{SetOf(StrT), "HashSet<String>"},
		{TupleOf(IntT, StrT), "(i32, String)"},
		{TupleOf(), "()"},
		{OptionalOf(ListOf(IntT)), "Option<Vec<i32>>"},
		{CustomT("Point"), "Point"},
		{TypeVarT("T"), "T"},
		{GenericOf("Box", IntT), "Box<i32>"},
		{IteratorOf(IntT), "impl Iterator<Item = i32>"},
		{UnknownT, "i32"},
	}
	for _, tt := range tests {
		if got := Map(tt.in, cfg).String(); got != tt.want {
			t.Errorf("Map(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMapConfigVariants(t *testing.T) {
	if got := Map(IntT, MapConfig{IntWidth: WidthI64}).String(); got != "i64" {
		t.Fatalf("i64 width: %s", got)
	}
	if got := Map(UnknownT, MapConfig{IntWidth: WidthISize}).String(); got != "isize" {
		t.Fatalf("unknown fallback: %s", got)
	}
	if got := Map(StrT, MapConfig{Strings: CowByDefault}).String(); got != "Cow<'static, str>" {
		t.Fatalf("cow strategy: %s", got)
	}
}

func TestMapDeterministic(t *testing.T) {
	cfgs := []MapConfig{
		{IntWidth: WidthI32, Strings: AlwaysOwned},
		{IntWidth: WidthI64, Strings: InferBorrowing},
		{IntWidth: WidthISize, Strings: CowByDefault},
	}
	samples := []*Type{
		IntT, StrT, ListOf(DictOf(StrT, OptionalOf(IntT))),
		TupleOf(FloatT, SetOf(IntT)), GenericOf("Pair", TypeVarT("T"), StrT), UnknownT,
	}
	for _, cfg := range cfgs {
		for _, s := range samples {
			a, b := Map(s, cfg), Map(s, cfg)
			if !a.Equal(b) || a.String() != b.String() {
				t.Errorf("Map(%s, %+v) not deterministic: %s vs %s", s, cfg, a, b)
			}
		}
	}
}

func TestOptionalCollapses(t *testing.T) {
	if got := OptionalOf(OptionalOf(IntT)).String(); got != "Optional[int]" {
		t.Fatalf("nested optional = %s", got)
	}
	if OptionalOf(NoneT).Kind != None {
		t.Fatal("Optional[None] must stay None")
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		a, b *Type
		want string
	}{
		{IntT, UnknownT, "int"},
		{NoneT, StrT, "Optional[str]"},
		{IntT, FloatT, "float"},
		{ListOf(UnknownT), ListOf(IntT), "list[int]"},
		{StrT, IntT, "unknown"},
	}
	for _, tt := range tests {
		if got := Join(tt.a, tt.b).String(); got != tt.want {
			t.Errorf("Join(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRustTypeRendering(t *testing.T) {
	tests := []struct {
		in   *RustType
		want string
	}{
		{RefTo(VecOf(Prim(I32)), false, ""), "&Vec<i32>"},
		{RefTo(HashMapOf(RustString, Prim(I32)), true, "a"), "&'a mut HashMap<String, i32>"},
		{StrRef("a"), "&'a str"},
		{StrRef(""), "&str"},
		{CowStr("a"), "Cow<'a, str>"},
		{ResultOf(Prim(I32), CustomRust("ZeroDivisionError")), "Result<i32, ZeroDivisionError>"},
		{ArrayOf(Prim(F64), ConstGeneric{Kind: ConstLiteral, Value: 4}), "[f64; 4]"},
		{ArrayOf(&RustType{Kind: RTypeParam, Name: "T"}, ConstGeneric{Kind: ConstParameter, Text: "N"}), "[T; N]"},
		{ArrayOf(Prim(U8), ConstGeneric{Kind: ConstExpression, Text: "N * 2"}), "[u8; { N * 2 }]"},
		{TupleRust(Prim(I32)), "(i32,)"},
		{&RustType{Kind: RBoxError}, "Box<dyn std::error::Error>"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("got %s, want %s", got, tt.want)
		}
	}
}

func TestCanCopy(t *testing.T) {
	if !Prim(I32).CanCopy() || !TupleRust(Prim(I32), RustBool).CanCopy() {
		t.Fatal("primitives and tuples of primitives are Copy")
	}
	if RustString.CanCopy() || VecOf(Prim(I32)).CanCopy() || RefTo(RustString, true, "").CanCopy() {
		t.Fatal("owned heap types and &mut are not Copy")
	}
	if !RefTo(RustString, false, "").CanCopy() {
		t.Fatal("shared references are Copy")
	}
}

func TestParseConfigValues(t *testing.T) {
	if w, err := ParseIntWidth("i64"); err != nil || w != WidthI64 {
		t.Fatalf("ParseIntWidth = %v, %v", w, err)
	}
	if _, err := ParseIntWidth("u8"); err == nil {
		t.Fatal("expected error for u8")
	}
	if s, err := ParseStringStrategy("cow"); err != nil || s != CowByDefault {
		t.Fatalf("ParseStringStrategy = %v, %v", s, err)
	}
}
