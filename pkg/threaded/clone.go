package threaded

import (
	"fmt"

	"github.com/goccy/go-json"
)

// CloneFunc produces a new, independent value from src. The pool calls it to
// materialize a slot from the prototype and to copy a merged result out of
// SnapshotMerge.
type CloneFunc[T any] func(src *T) *T

// Cloner is implemented by types that need more than a value copy to be
// duplicated, typically because they own slices or maps.
type Cloner[T any] interface {
	Clone() *T
}

// CopyValue duplicates src with a plain Go assignment. It is the cloning
// policy for types whose zero-sharing copy is the value copy.
func CopyValue[T any](src *T) *T {
	dst := new(T)
	*dst = *src
	return dst
}

// CloneValue duplicates src through its Clone method.
func CloneValue[T any, PT interface {
	*T
	Cloner[T]
}](src *T) *T {
	return PT(src).Clone()
}

// interfaceClone is the policy New installs when *T turns out to implement
// Cloner. CloneValue needs the pointer type as a type argument, which New
// does not have.
func interfaceClone[T any](src *T) *T {
	return any(src).(Cloner[T]).Clone()
}

// detectClone picks the cloning policy for New: the type's Clone method when
// *T has one, a value copy otherwise.
func detectClone[T any]() CloneFunc[T] {
	if _, ok := any((*T)(nil)).(Cloner[T]); ok {
		return interfaceClone[T]
	}
	return CopyValue[T]
}

// JSONClone duplicates src through a JSON round trip. It deep-copies plain
// data types that have no Clone method, at the cost of dropping unexported
// fields. It panics if T cannot be encoded.
func JSONClone[T any](src *T) *T {
	data, err := json.Marshal(src)
	if err != nil {
		panic(fmt.Sprintf("threaded: json clone: %v", err))
	}
	dst := new(T)
	if err := json.Unmarshal(data, dst); err != nil {
		panic(fmt.Sprintf("threaded: json clone: %v", err))
	}
	return dst
}
