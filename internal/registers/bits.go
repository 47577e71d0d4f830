// internal/registers/bits.go
package registers

// Bit names of the system status register (fire alarm / bypass / defrosting).
const (
	BitFireAlarm  = "fireAlarm"
	BitBypassOn   = "bypassOn"
	BitBypassOff  = "bypassOff"
	BitDefrosting = "defrosting"
)

// Bit names of the error register.
const (
	BitOATemperatureError = "oaTemperatureError"
	BitFrTemperatureError = "frTemperatureError"
	BitRATemperatureError = "raTemperatureError"
	BitEEPROMError        = "eepromError"
)

var statusBits = []Bit{
	{Position: 0, Name: BitFireAlarm},
	{Position: 1, Name: BitBypassOn},
	{Position: 2, Name: BitBypassOff},
	{Position: 3, Name: BitDefrosting},
}

var errorBits = []Bit{
	{Position: 2, Name: BitOATemperatureError},
	{Position: 3, Name: BitFrTemperatureError},
	{Position: 4, Name: BitRATemperatureError},
	{Position: 5, Name: BitEEPROMError},
}

// StatusBits returns the bit table of the system status register.
func StatusBits() []Bit { return append([]Bit(nil), statusBits...) }

// ErrorBits returns the bit table of the error register.
func ErrorBits() []Bit { return append([]Bit(nil), errorBits...) }

// SystemStatus is the typed view of the system status bitfield.
type SystemStatus struct {
	FireAlarm  bool `json:"fireAlarm"`
	BypassOn   bool `json:"bypassOn"`
	BypassOff  bool `json:"bypassOff"`
	Defrosting bool `json:"defrosting"`
}

func SystemStatusFrom(f Flags) SystemStatus {
	return SystemStatus{
		FireAlarm:  f[BitFireAlarm],
		BypassOn:   f[BitBypassOn],
		BypassOff:  f[BitBypassOff],
		Defrosting: f[BitDefrosting],
	}
}

// ErrorStatus is the typed view of the error bitfield.
type ErrorStatus struct {
	OATemperature bool `json:"oaTemperatureError"`
	FrTemperature bool `json:"frTemperatureError"`
	RATemperature bool `json:"raTemperatureError"`
	EEPROM        bool `json:"eepromError"`
}

func ErrorStatusFrom(f Flags) ErrorStatus {
	return ErrorStatus{
		OATemperature: f[BitOATemperatureError],
		FrTemperature: f[BitFrTemperatureError],
		RATemperature: f[BitRATemperatureError],
		EEPROM:        f[BitEEPROMError],
	}
}

// Any reports whether any error bit is set.
func (e ErrorStatus) Any() bool {
	return e.OATemperature || e.FrTemperature || e.RATemperature || e.EEPROM
}
