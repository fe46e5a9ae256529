package servo

// MotorCalibration holds the recorded travel range of a single servo.
type MotorCalibration struct {
	ID       int  `json:"id"`
	Model    int  `json:"model,omitempty"`
	RangeMin int  `json:"range_min"` // raw position at full retraction
	RangeMax int  `json:"range_max"` // raw position at full extension
	Inverted bool `json:"inverted,omitempty"`
}

// Normalize converts a raw servo position to an extension fraction in [0, 1].
// Positions outside the recorded range map outside [0, 1].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	f := float64(raw-c.RangeMin) / rangeSize
	if c.Inverted {
		return 1 - f
	}
	return f
}

// Denormalize converts an extension fraction to a raw servo position.
// The fraction is clamped to [0, 1].
func (c MotorCalibration) Denormalize(f float64) int {
	f = min(max(f, 0), 1)
	if c.Inverted {
		f = 1 - f
	}
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int(f*rangeSize+0.5) + c.RangeMin
}

// Calibration lists the servos that move one device together.
type Calibration []MotorCalibration

// MotorIDs returns the servo IDs in calibration order.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	for _, mc := range c {
		ids = append(ids, mc.ID)
	}
	return ids
}

// ByID returns the calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorCalibration, bool) {
	for _, mc := range c {
		if mc.ID == id {
			return mc, true
		}
	}
	return MotorCalibration{}, false
}

// Mean averages the normalized positions of the calibrated motors in raw.
// Unknown IDs are ignored; ok is false when none match.
func (c Calibration) Mean(raw map[int]int) (mean float64, ok bool) {
	var sum float64
	var n int
	for id, pos := range raw {
		mc, found := c.ByID(id)
		if !found {
			continue
		}
		sum += mc.Normalize(pos)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
