package platform

import "fmt"

// dpiSteps are the scale percentages the Windows settings slider offers,
// in slider order. The display driver reports and accepts positions on
// this list relative to the recommended step.
var dpiSteps = []int{100, 125, 150, 175, 200, 225, 250, 300, 350, 400, 450, 500}

// SDR white level bounds in nits, as accepted by the HDR settings page.
const (
	minSDRNits = 80
	maxSDRNits = 480
)

// dpiFromRelative converts the step offsets a display source reports into
// percentages. minRel is the offset of 100% from the recommended step and
// is never positive.
func dpiFromRelative(minRel, curRel, maxRel int32) (current, recommended int, err error) {
	if minRel > 0 || maxRel < 0 {
		return 0, 0, fmt.Errorf("invalid scale range [%d, %d]", minRel, maxRel)
	}
	rec := int(-minRel)
	if rec+int(maxRel) >= len(dpiSteps) {
		return 0, 0, fmt.Errorf("scale range [%d, %d] exceeds known steps", minRel, maxRel)
	}
	curRel = max(minRel, min(curRel, maxRel))
	return dpiSteps[rec+int(curRel)], dpiSteps[rec], nil
}

// dpiToRelative returns the step offset that selects percent on a display
// whose recommended scale is recommended.
func dpiToRelative(percent, recommended int) (int32, error) {
	target, base := -1, -1
	for i, v := range dpiSteps {
		if v == percent {
			target = i
		}
		if v == recommended {
			base = i
		}
	}
	if target < 0 {
		return 0, fmt.Errorf("%d%% is not a supported scale step", percent)
	}
	if base < 0 {
		return 0, fmt.Errorf("recommended scale %d%% is not a known step", recommended)
	}
	return int32(target - base), nil
}

// sdrLevelToNits converts the driver's SDR white level (1000 = 80 nits)
// to nits.
func sdrLevelToNits(level uint32) int {
	return int(level * 80 / 1000)
}

// sdrNitsToLevel validates nits and rounds it up to the slider's 4-nit
// increments before converting to the driver's encoding.
func sdrNitsToLevel(nits int) (uint32, error) {
	if nits < minSDRNits || nits > maxSDRNits {
		return 0, fmt.Errorf("SDR white level %d nits is outside %d-%d", nits, minSDRNits, maxSDRNits)
	}
	if r := nits % 4; r != 0 {
		nits += 4 - r
	}
	return uint32(nits * 1000 / 80), nil
}

// advancedColor decodes the value field of an advanced color info packet.
func advancedColor(value uint32) (supported, enabled bool) {
	return value&0x1 != 0, value&0x2 != 0
}
