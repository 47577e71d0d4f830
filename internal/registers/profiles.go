// internal/registers/profiles.go
package registers

import "fmt"

const (
	ProfileERV    = "erv"
	ProfileHoltop = "holtop"
)

var fanRange = &Range{Min: 0, Max: 14}

// ERV is the telemetry table served by the ERV controller gateway:
// power and fan steps at the bottom, sensors from 0x0064.
func ERV() *Map {
	m, err := NewMap(ProfileERV, []RegisterDef{
		{Address: 0x0000, Name: SystemPower, Description: "ERV ON/OFF", Access: ReadWrite, Encoding: Bool, Scale: Unity},
		{Address: 0x0001, Name: SupplyFanSpeed, Description: "Supply fan speed step", Access: ReadWrite, Encoding: UInt16, Scale: Unity, Range: fanRange, Values: FanStepCodes()},
		{Address: 0x0002, Name: ExhaustFanSpeed, Description: "Exhaust fan speed step", Access: ReadWrite, Encoding: UInt16, Scale: Unity, Range: fanRange, Values: FanStepCodes()},
		{Address: 0x0012, Name: SystemStatusBits, Description: "Fire alarm/bypass/defrosting signals", Access: ReadOnly, Encoding: Bitfield, Scale: Unity, Bits: statusBits},
		{Address: 0x0014, Name: ErrorBitsName, Description: "Error symbol", Access: ReadOnly, Encoding: Bitfield, Scale: Unity, Bits: errorBits},
		{Address: 0x0064, Name: SupplyTemperature, Description: "Supply air temperature", Access: ReadOnly, Encoding: Int16, Scale: Tenth, Unit: "°C"},
		{Address: 0x0065, Name: ExhaustTemperature, Description: "Exhaust air temperature", Access: ReadOnly, Encoding: Int16, Scale: Tenth, Unit: "°C"},
		{Address: 0x0066, Name: SupplyHumidity, Description: "Supply air relative humidity", Access: ReadOnly, Encoding: UInt16, Scale: Unity, Unit: "%RH", Range: &Range{Min: 0, Max: 100}},
		{Address: 0x0067, Name: ExhaustHumidity, Description: "Exhaust air relative humidity", Access: ReadOnly, Encoding: UInt16, Scale: Unity, Unit: "%RH", Range: &Range{Min: 0, Max: 100}},
	})
	if err != nil {
		panic(err)
	}
	return m
}

// Holtop is the register table from the Holtop ERV controller manual.
func Holtop() *Map {
	m, err := NewMap(ProfileHoltop, []RegisterDef{
		{Address: 2, Name: "bypassOpeningTemp", Description: "Bypass opening temperature X", Access: ReadWrite, Encoding: UInt16, Scale: Unity, Unit: "°C", Range: &Range{Min: 5, Max: 30}},
		{Address: 3, Name: "bypassTempRange", Description: "Bypass opening temperature range Y", Access: ReadWrite, Encoding: UInt16, Scale: Unity, Unit: "°C", Range: &Range{Min: 2, Max: 15}},
		{Address: 4, Name: "defrostingInterval", Description: "Defrosting interval", Access: ReadWrite, Encoding: UInt16, Scale: Unity, Unit: "min", Range: &Range{Min: 15, Max: 99}},
		{Address: 5, Name: "defrostingEnterTemp", Description: "Defrosting enter temperature", Access: ReadWrite, Encoding: Int16, Scale: Unity, Unit: "°C", Range: &Range{Min: -9, Max: 5}},
		{Address: 6, Name: "defrostDuration", Description: "Defrost duration time", Access: ReadWrite, Encoding: UInt16, Scale: Unity, Unit: "min", Range: &Range{Min: 2, Max: 20}},
		{Address: 7, Name: "co2SensorThreshold", Description: "CO2 sensor threshold", Access: ReadWrite, Encoding: UInt16, Scale: Scale{Num: 49, Den: 5}, Unit: "ppm", Range: &Range{Min: 392, Max: 1960}},
		{Address: 8, Name: "modbusAddress", Description: "ModBus address", Access: ReadWrite, Encoding: UInt16, Scale: Unity, Range: &Range{Min: 1, Max: 16}},
		{Address: 9, Name: SystemPower, Description: "ERV ON/OFF", Access: ReadWrite, Encoding: Bool, Scale: Unity},
		{Address: 10, Name: SupplyFanSpeed, Description: "Supply fan speed", Access: ReadWrite, Encoding: UInt16, Scale: Unity, Range: fanRange, Values: FanStepCodes()},
		{Address: 11, Name: ExhaustFanSpeed, Description: "Exhaust fan speed", Access: ReadWrite, Encoding: UInt16, Scale: Unity, Range: fanRange, Values: FanStepCodes()},
		{Address: 12, Name: RoomTemperature, Description: "Room temperature", Access: ReadOnly, Encoding: Int16, Scale: Unity, Unit: "°C"},
		{Address: 13, Name: OutdoorTemperature, Description: "Outdoor temperature", Access: ReadOnly, Encoding: Int16, Scale: Unity, Unit: "°C"},
		{Address: 14, Name: ExhaustTemperature, Description: "Exhaust air temperature", Access: ReadOnly, Encoding: Int16, Scale: Unity, Unit: "°C"},
		{Address: 15, Name: "defrostingTemperature", Description: "Defrosting temperature", Access: ReadOnly, Encoding: Int16, Scale: Unity, Unit: "°C"},
		{Address: 16, Name: "externalOnOffSignal", Description: "External ON/OFF signal", Access: ReadOnly, Encoding: Bool, Scale: Unity},
		{Address: 17, Name: "co2OnOffSignal", Description: "CO2 ON/OFF signal", Access: ReadOnly, Encoding: Bool, Scale: Unity},
		{Address: 18, Name: SystemStatusBits, Description: "Fire alarm/bypass/defrosting signals", Access: ReadOnly, Encoding: Bitfield, Scale: Unity, Bits: statusBits},
		{Address: 19, Name: "electricalHeaterStage", Description: "Electrical heater stage", Access: ReadOnly, Encoding: UInt16, Scale: Unity},
		{Address: 20, Name: ErrorBitsName, Description: "Error symbol", Access: ReadOnly, Encoding: Bitfield, Scale: Unity, Bits: errorBits},
	})
	if err != nil {
		panic(err)
	}
	return m
}

// Profile returns a built-in table by name.
func Profile(name string) (*Map, error) {
	switch name {
	case "", ProfileERV:
		return ERV(), nil
	case ProfileHoltop:
		return Holtop(), nil
	}
	return nil, fmt.Errorf("registers: unknown profile %q", name)
}
