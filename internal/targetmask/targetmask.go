// Package targetmask carries the slice of the SV1 targeting bitmasks the
// BGS quality scan needs, and the sample classification built on them.
package targetmask

import (
	"fmt"
	"math"
)

// Mask maps bit names to bit positions.
type Mask map[string]uint

// SV1DesiMask is the SV1 primary target mask (SV1_DESI_TARGET).
var SV1DesiMask = Mask{
	"LRG":        0,
	"ELG":        1,
	"QSO":        2,
	"SKY":        32,
	"STD_FAINT":  33,
	"STD_BRIGHT": 35,
	"BAD_SKY":    36,
	"BGS_ANY":    60,
	"MWS_ANY":    61,
	"SCND_ANY":   62,
}

// SV1BGSMask is the SV1 bright galaxy survey mask (SV1_BGS_TARGET).
var SV1BGSMask = Mask{
	"BGS_FAINT":     0,
	"BGS_BRIGHT":    1,
	"BGS_FAINT_EXT": 2,
	"BGS_LOWQ":      3,
	"BGS_FIBMAG":    4,
}

// Value returns the integer value of the named bit.
func (m Mask) Value(name string) (int64, error) {
	bit, ok := m[name]
	if !ok {
		return 0, fmt.Errorf("unknown mask bit %q", name)
	}
	return 1 << bit, nil
}

// MustValue is Value for names known at compile time.
func (m Mask) MustValue(name string) int64 {
	v, err := m.Value(name)
	if err != nil {
		panic(err)
	}
	return v
}

var (
	bgsAny    = SV1DesiMask.MustValue("BGS_ANY")
	bgsBright = SV1BGSMask.MustValue("BGS_BRIGHT")
	bgsFaint  = SV1BGSMask.MustValue("BGS_FAINT")
)

// Class records which BGS samples a fiber's target belongs to.
type Class struct {
	BGS    bool
	Bright bool
	Faint  bool
}

// Classify tests a target's SV1 masks. Every sample is additionally
// restricted to targets for which nonstar is true.
func Classify(desiTarget, bgsTarget int64, nonstar bool) Class {
	return Class{
		BGS:    desiTarget&bgsAny != 0 && nonstar,
		Bright: bgsTarget&bgsBright != 0 && nonstar,
		Faint:  bgsTarget&bgsFaint != 0 && nonstar,
	}
}

// RMag converts an r-band flux in nanomaggies to an AB magnitude. Non-positive
// fluxes give +Inf.
func RMag(fluxR float64) float64 {
	if fluxR <= 0 {
		return math.Inf(1)
	}
	return 22.5 - 2.5*math.Log10(fluxR)
}

// NonStar reports whether a target is not a Gaia star: either it has no
// Gaia match (G == 0) or it is more than 0.6 mag brighter in r than in G.
func NonStar(gaiaG, fluxR float64) bool {
	if gaiaG == 0 {
		return true
	}
	return gaiaG-RMag(fluxR) > 0.6
}
