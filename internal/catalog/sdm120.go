// internal/catalog/sdm120.go
package catalog

// Eastron SDM120 input registers. All values are IEEE754 floats spread over
// two registers, low word first.
var sdm120Fields = []FieldDescriptor{
	{ID: "voltage", Name: "Voltage", Unit: "V", Address: 0x0000, Span: 2, Decode: DecodeFloat32WordSwapped,
		Quantity: QuantityVoltage, DeviceClass: "voltage", StateClass: StateMeasurement, Icon: "mdi:flash"},
	{ID: "current", Name: "Current", Unit: "A", Address: 0x0006, Span: 2, Decode: DecodeFloat32WordSwapped,
		Quantity: QuantityCurrent, DeviceClass: "current", StateClass: StateMeasurement, Icon: "mdi:current-ac"},
	{ID: "active_power", Name: "Active Power", Unit: "W", Address: 0x000C, Span: 2, Decode: DecodeFloat32WordSwapped,
		Quantity: QuantityPower, DeviceClass: "power", StateClass: StateMeasurement, Icon: "mdi:flash"},
	{ID: "apparent_power", Name: "Apparent Power", Unit: "VA", Address: 0x0012, Span: 2, Decode: DecodeFloat32WordSwapped,
		Quantity: QuantityPower, DeviceClass: "apparent_power", StateClass: StateMeasurement, Icon: "mdi:flash-outline"},
	{ID: "reactive_power", Name: "Reactive Power", Unit: "var", Address: 0x0018, Span: 2, Decode: DecodeFloat32WordSwapped,
		Quantity: QuantityPower, DeviceClass: "reactive_power", StateClass: StateMeasurement, Icon: "mdi:flash-outline"},
	{ID: "power_factor", Name: "Power Factor", Unit: "", Address: 0x001E, Span: 2, Decode: DecodeFloat32WordSwapped,
		Quantity: QuantityPowerFactor, DeviceClass: "power_factor", StateClass: StateMeasurement, Icon: "mdi:cosine-wave"},
	{ID: "frequency", Name: "Frequency", Unit: "Hz", Address: 0x0046, Span: 2, Decode: DecodeFloat32WordSwapped,
		Quantity: QuantityFrequency, DeviceClass: "frequency", StateClass: StateMeasurement, Icon: "mdi:sine-wave"},
	{ID: "import_energy", Name: "Import Energy", Unit: "kWh", Address: 0x0048, Span: 2, Decode: DecodeFloat32WordSwapped,
		Quantity: QuantityEnergy, DeviceClass: "energy", StateClass: StateTotalIncreasing, Icon: "mdi:transmission-tower-import"},
	{ID: "export_energy", Name: "Export Energy", Unit: "kWh", Address: 0x004A, Span: 2, Decode: DecodeFloat32WordSwapped,
		Quantity: QuantityEnergy, DeviceClass: "energy", StateClass: StateTotalIncreasing, Icon: "mdi:transmission-tower-export"},
	{ID: "total_energy", Name: "Total Energy", Unit: "kWh", Address: 0x0156, Span: 2, Decode: DecodeFloat32WordSwapped,
		Quantity: QuantityEnergy, DeviceClass: "energy", StateClass: StateTotalIncreasing, Icon: "mdi:lightning-bolt"},
}

// SDM120 returns the validated SDM120 catalog.
func SDM120() (Catalog, error) {
	return New(sdm120Fields...)
}
