// internal/catalog/catalog.go
package catalog

import "fmt"

// Catalog is the fixed, ordered list of fields read from the meter.
// It is immutable after New and safe for concurrent readers.
type Catalog struct {
	fields []FieldDescriptor
	index  map[string]int
}

// New validates fields and returns a Catalog preserving their order.
// Any malformed descriptor or overlapping register range is an error
// wrapping ErrDecodeImpossible.
func New(fields ...FieldDescriptor) (Catalog, error) {
	if len(fields) == 0 {
		return Catalog{}, fmt.Errorf("%w: catalog is empty", ErrDecodeImpossible)
	}

	type span struct {
		start uint16
		end   uint16
		id    string
	}

	index := make(map[string]int, len(fields))
	spans := make([]span, 0, len(fields))

	for i, f := range fields {
		if err := f.validate(); err != nil {
			return Catalog{}, err
		}
		if _, dup := index[f.ID]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate field id %q", ErrDecodeImpossible, f.ID)
		}

		start, end := f.Address, f.End()
		for _, s := range spans {
			// overlap check (inclusive)
			if !(end < s.start || start > s.end) {
				return Catalog{}, fmt.Errorf(
					"%w: field %q range 0x%04X-0x%04X overlaps field %q range 0x%04X-0x%04X",
					ErrDecodeImpossible, f.ID, start, end, s.id, s.start, s.end,
				)
			}
		}

		spans = append(spans, span{start: start, end: end, id: f.ID})
		index[f.ID] = i
	}

	own := make([]FieldDescriptor, len(fields))
	copy(own, fields)

	return Catalog{fields: own, index: index}, nil
}

// MustNew is New that panics; for package-level catalogs only.
func MustNew(fields ...FieldDescriptor) Catalog {
	c, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return c
}

// Fields returns the descriptors in catalog order. The slice is a copy.
func (c Catalog) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(c.fields))
	copy(out, c.fields)
	return out
}

// Len is the number of fields.
func (c Catalog) Len() int { return len(c.fields) }

// At returns the descriptor at catalog position i.
func (c Catalog) At(i int) FieldDescriptor { return c.fields[i] }

// Lookup finds a descriptor by id.
func (c Catalog) Lookup(id string) (FieldDescriptor, bool) {
	i, ok := c.index[id]
	if !ok {
		return FieldDescriptor{}, false
	}
	return c.fields[i], true
}
