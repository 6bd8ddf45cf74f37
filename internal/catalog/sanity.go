// internal/catalog/sanity.go
package catalog

import "math"

// Range is an inclusive plausibility band.
type Range struct {
	Min float32
	Max float32
}

// plausible maps a quantity to the band a correctly configured register is
// expected to produce. Quantities without an entry are never flagged.
var plausible = map[Quantity]Range{
	QuantityVoltage:     {Min: 0, Max: 500},
	QuantityFrequency:   {Min: 45, Max: 65},
	QuantityPowerFactor: {Min: -1.1, Max: 1.1},
	QuantityEnergy:      {Min: 0, Max: 10000},
}

// PlausibleRange returns the sanity band for q, if any.
func PlausibleRange(q Quantity) (Range, bool) {
	r, ok := plausible[q]
	return r, ok
}

// Plausible reports whether v is a believable value for the field.
// Non-finite values are never plausible. Out-of-band values are still
// valid data; callers only flag them.
func (d FieldDescriptor) Plausible(v float32) bool {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	r, ok := plausible[d.Quantity]
	if !ok {
		return true
	}
	return v >= r.Min && v <= r.Max
}
