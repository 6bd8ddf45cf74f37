// internal/catalog/descriptor.go
package catalog

import (
	"errors"
	"fmt"
)

// ErrDecodeImpossible marks a descriptor that cannot be decoded as declared.
// It only surfaces at startup and is fatal.
var ErrDecodeImpossible = errors.New("catalog: field decode impossible")

// DecodeKind selects how a field's registers become a value.
type DecodeKind uint8

const (
	DecodeUnknown DecodeKind = iota
	// DecodeFloat32WordSwapped is IEEE754 single precision, low word first.
	DecodeFloat32WordSwapped
)

// Registers returns the number of registers the decode kind consumes.
// Zero means the kind is not decodable.
func (k DecodeKind) Registers() uint16 {
	switch k {
	case DecodeFloat32WordSwapped:
		return 2
	default:
		return 0
	}
}

func (k DecodeKind) String() string {
	switch k {
	case DecodeFloat32WordSwapped:
		return "float32_cdab"
	default:
		return "unknown"
	}
}

// StateClass tells the automation platform how to aggregate a sensor.
type StateClass string

const (
	StateMeasurement     StateClass = "measurement"
	StateTotalIncreasing StateClass = "total_increasing"
)

// Quantity is the physical kind of a field. It drives display precision and
// the plausibility table.
type Quantity uint8

const (
	QuantityVoltage Quantity = iota + 1
	QuantityCurrent
	QuantityPower
	QuantityPowerFactor
	QuantityFrequency
	QuantityEnergy
)

func (q Quantity) String() string {
	switch q {
	case QuantityVoltage:
		return "voltage"
	case QuantityCurrent:
		return "current"
	case QuantityPower:
		return "power"
	case QuantityPowerFactor:
		return "power_factor"
	case QuantityFrequency:
		return "frequency"
	case QuantityEnergy:
		return "energy"
	default:
		return "unknown"
	}
}

// Precision is the number of decimals used when the value is published.
func (q Quantity) Precision() int {
	switch q {
	case QuantityCurrent, QuantityPowerFactor, QuantityEnergy:
		return 3
	default:
		return 2
	}
}

// FieldDescriptor describes one readable field of the meter.
type FieldDescriptor struct {
	ID          string
	Name        string
	Unit        string
	Address     uint16
	Span        uint16
	Decode      DecodeKind
	Quantity    Quantity
	DeviceClass string
	StateClass  StateClass
	Icon        string
}

// Precision is the publish precision of the field.
func (d FieldDescriptor) Precision() int {
	return d.Quantity.Precision()
}

// End returns the last register address covered by the field (inclusive).
func (d FieldDescriptor) End() uint16 {
	return d.Address + d.Span - 1
}

func (d FieldDescriptor) validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty field id at address 0x%04X", ErrDecodeImpossible, d.Address)
	}
	want := d.Decode.Registers()
	if want == 0 {
		return fmt.Errorf("%w: field %q: unsupported decode kind %d", ErrDecodeImpossible, d.ID, d.Decode)
	}
	if d.Span != want {
		return fmt.Errorf(
			"%w: field %q: span %d does not match %s (%d registers)",
			ErrDecodeImpossible, d.ID, d.Span, d.Decode, want,
		)
	}
	if uint32(d.Address)+uint32(d.Span) > 0x10000 {
		return fmt.Errorf("%w: field %q: range 0x%04X+%d exceeds register space", ErrDecodeImpossible, d.ID, d.Address, d.Span)
	}
	switch d.StateClass {
	case StateMeasurement, StateTotalIncreasing:
	default:
		return fmt.Errorf("%w: field %q: unknown state class %q", ErrDecodeImpossible, d.ID, d.StateClass)
	}
	if d.Quantity.String() == "unknown" {
		return fmt.Errorf("%w: field %q: unknown quantity", ErrDecodeImpossible, d.ID)
	}
	return nil
}
