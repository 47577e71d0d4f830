// internal/registers/fanspeed.go
package registers

// FanStep is one discrete fan speed level understood by the controller.
type FanStep struct {
	Code    uint16
	Percent int
	Name    string
}

// Codes and percentages are both strictly increasing; percentages are spaced by 10.
var fanSteps = [...]FanStep{
	{Code: 0, Percent: 0, Name: "Stop"},
	{Code: 2, Percent: 10, Name: "Speed 1"},
	{Code: 3, Percent: 20, Name: "Speed 2"},
	{Code: 5, Percent: 30, Name: "Speed 3"},
	{Code: 8, Percent: 40, Name: "Speed 4"},
	{Code: 9, Percent: 50, Name: "Speed 5"},
	{Code: 10, Percent: 60, Name: "Speed 6"},
	{Code: 11, Percent: 70, Name: "Speed 7"},
	{Code: 12, Percent: 80, Name: "Speed 8"},
	{Code: 13, Percent: 90, Name: "Speed 9"},
	{Code: 14, Percent: 100, Name: "Speed 10"},
}

// FanSteps returns a copy of the step table in ascending order.
func FanSteps() []FanStep {
	out := make([]FanStep, len(fanSteps))
	copy(out[:], fanSteps[:])
	return out
}

// FanStepCodes returns the valid fan register codes in ascending order.
func FanStepCodes() []float64 {
	out := make([]float64, len(fanSteps))
	for i, s := range fanSteps {
		out[i] = float64(s.Code)
	}
	return out
}

// PercentToStep returns the code whose percentage is closest to pct.
// Ties go to the earlier (lower) step: 5 -> Stop, 45 -> Speed 4.
func PercentToStep(pct int) uint16 {
	best := fanSteps[0]
	for _, s := range fanSteps[1:] {
		if absInt(s.Percent-pct) < absInt(best.Percent-pct) {
			best = s
		}
	}
	return best.Code
}

// StepToPercent returns the percentage for a device code, 0 for unknown codes.
func StepToPercent(code uint16) int {
	if s, ok := StepByCode(code); ok {
		return s.Percent
	}
	return 0
}

func StepByCode(code uint16) (FanStep, bool) {
	for _, s := range fanSteps {
		if s.Code == code {
			return s, true
		}
	}
	return FanStep{}, false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
