package spec

// TypeCode identifies one of the named primitive types of the VM.
// TC_Product is the code for anonymous product types which carry an arity instead of a name.
type TypeCode uint8

const (
	TC_Product = TypeCode(iota)
	TC_Literal
	TC_Type
	TC_Fixnum
	TC_Actor
	TC_Instr
	TC_Pair
	TC_Dict
)

var typeNames = [...]string{
	TC_Product: "",
	TC_Literal: "literal",
	TC_Type:    "type",
	TC_Fixnum:  "fixnum",
	TC_Actor:   "actor",
	TC_Instr:   "instr",
	TC_Pair:    "pair",
	TC_Dict:    "dict",
}

// String returns the name used in source and assembly, without the "_t" suffix.
func (tc TypeCode) String() string {
	if int(tc) < len(typeNames) {
		return typeNames[tc]
	}
	return ""
}

// ParseTypeCode is the inverse of TypeCode.String for named types.
func ParseTypeCode(name string) (TypeCode, bool) {
	for i, n := range typeNames {
		if n != "" && n == name {
			return TypeCode(i), true
		}
	}
	return TC_Product, false
}
