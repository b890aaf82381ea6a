package value

import "fmt"

// NamedValue binds a display name and type to a live value held by the
// application. Get always returns Dim values; for Dim==1 that is a
// single-element slice rendered as a scalar, for Dim>1 it renders as an
// array. Set is nil for read-only values (status, data): the codec only
// ever calls Set on parameters, after the validator accepts a tentative
// value.
type NamedValue struct {
	Name string
	Tag  Tag
	Dim  int

	Get func() []Value
	Set func([]Value) error
}

// Scalar builds a read-only NamedValue backed by a getter returning a single
// value, the common case for status and data fields. Its Tag is taken from
// one call to get at construction.
func Scalar(name string, get func() Value) NamedValue {
	return NamedValue{
		Name: name,
		Tag:  get().Tag,
		Dim:  1,
		Get:  func() []Value { return []Value{get()} },
	}
}

// Array builds a read-only NamedValue over a fixed-dimension slice.
func Array(name string, tag Tag, get func() []Value) NamedValue {
	values := get()
	return NamedValue{
		Name: name,
		Tag:  tag,
		Dim:  len(values),
		Get:  get,
	}
}

// Collection is an ordered, name-unique sequence of NamedValue. Iteration
// order equals declared (Add) order.
type Collection struct {
	values []NamedValue
	byName map[string]int
}

// NewCollection returns an empty Collection.
func NewCollection() *Collection {
	return &Collection{byName: make(map[string]int)}
}

// Add appends nv, returning an error if its name is already present.
func (c *Collection) Add(nv NamedValue) error {
	if _, exists := c.byName[nv.Name]; exists {
		return fmt.Errorf("value: duplicate name %q", nv.Name)
	}
	c.byName[nv.Name] = len(c.values)
	c.values = append(c.values, nv)
	return nil
}

// Lookup returns the NamedValue registered under name.
func (c *Collection) Lookup(name string) (NamedValue, bool) {
	i, ok := c.byName[name]
	if !ok {
		return NamedValue{}, false
	}
	return c.values[i], true
}

// Len returns the number of named values in the collection.
func (c *Collection) Len() int { return len(c.values) }

// All returns the named values in declared order. The returned slice must
// not be mutated by the caller.
func (c *Collection) All() []NamedValue { return c.values }
