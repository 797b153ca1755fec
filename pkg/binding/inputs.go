package binding

import (
	"math"
	"reflect"
	"slices"
)

// Inputs is the ordered tuple of external values a binding reacts to,
// typically widget fields. Its length is fixed for the life of a binding.
type Inputs []any

// InputsChanged reports whether next differs from prev element-wise.
// Elements are compared shallowly: maps, slices, funcs, channels, and
// pointers by identity, structs and arrays field by field under the same
// rules, and NaN equals NaN. A length change counts as a change.
func InputsChanged(prev, next Inputs) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if !sameValue(prev[i], next[i]) {
			return true
		}
	}
	return false
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return sameReflect(reflect.ValueOf(a), reflect.ValueOf(b))
}

// sameReflect never calls Interface, so unexported fields are compared
// like exported ones. Recursion only follows values held inline; pointers
// stop it.
func sameReflect(a, b reflect.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return sameFloat(a.Float(), b.Float())
	case reflect.Complex64, reflect.Complex128:
		x, y := a.Complex(), b.Complex()
		return sameFloat(real(x), real(y)) && sameFloat(imag(x), imag(y))
	case reflect.String:
		return a.String() == b.String()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Slice:
		return a.Pointer() == b.Pointer() && a.Len() == b.Len()
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return sameReflect(a.Elem(), b.Elem())
	case reflect.Struct:
		for i := range a.NumField() {
			if !sameReflect(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := range a.Len() {
			if !sameReflect(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func sameFloat(x, y float64) bool {
	return x == y || (math.IsNaN(x) && math.IsNaN(y))
}

func cloneInputs(in Inputs) Inputs {
	if in == nil {
		return nil
	}
	return slices.Clone(in)
}
