package selectctx

import "reflect"

// identical reports whether two values are the same reference.
//
// Pointers, maps, channels, functions and unsafe pointers compare by
// address; slices compare by backing array and length; comparable value
// types compare with ==. Values of uncomparable struct kinds are never
// identical. Deep comparison is deliberately absent: selectors must return
// referentially stable results for unchanged logical state, and the
// bail-out machinery holds them to exactly that contract.
func identical[T any](a, b T) bool {
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)

	if !av.IsValid() || !bv.IsValid() {
		// Untyped nil interfaces: identical only if both are nil.
		return av.IsValid() == bv.IsValid()
	}
	if av.Type() != bv.Type() {
		return false
	}

	switch av.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return av.Pointer() == bv.Pointer()
	case reflect.Slice:
		if av.Len() != bv.Len() {
			return false
		}
		if av.Len() == 0 {
			return av.IsNil() == bv.IsNil()
		}
		return av.Pointer() == bv.Pointer()
	default:
		if !av.Type().Comparable() {
			return false
		}
		return any(a) == any(b)
	}
}
