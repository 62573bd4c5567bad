// Package ephem computes the solar and lunar geometry of a telescope
// pointing: airmass, moon altitude, moon separation and illuminated fraction.
//
// Positions are geocentric and low precision (arcminutes), which is plenty
// for observing-condition summaries.
package ephem

import (
	"math"

	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/moonillum"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
)

// MJDOffset converts a modified Julian date to a Julian date.
const MJDOffset = 2400000.5

// Site is an observatory location.
type Site struct {
	LatitudeDeg  float64
	LongitudeDeg float64 // east positive
}

// KittPeak is the Mayall telescope.
var KittPeak = Site{LatitudeDeg: 31.96403, LongitudeDeg: -111.59989}

// Geometry is the sky geometry of one pointing at one instant.
type Geometry struct {
	Airmass  float64 // +Inf below the horizon
	MoonAlt  float64 // degrees
	MoonSep  float64 // degrees between pointing and moon
	MoonFrac float64 // illuminated fraction, 0..1
	SunAlt   float64 // degrees
}

// Compute returns the geometry of the pointing (raDeg, decDeg) seen from
// site at the given MJD.
func Compute(mjd, raDeg, decDeg float64, site Site) Geometry {
	jd := mjd + MJDOffset
	lst := LocalSiderealRad(mjd, site.LongitudeDeg)
	lat := site.LatitudeDeg * math.Pi / 180

	ra := unit.RAFromDeg(raDeg)
	dec := unit.AngleFromDeg(decDeg)

	mRA, mDec := moonEquatorial(jd)
	sRA, sDec := solar.ApparentEquatorial(jd)

	alt := altitude(ra.Rad(), dec.Rad(), lat, lst)
	phase := moonillum.PhaseAngleEq2(mRA, mDec, sRA, sDec)

	return Geometry{
		Airmass:  Airmass(alt),
		MoonAlt:  altitude(mRA.Rad(), mDec.Rad(), lat, lst) * 180 / math.Pi,
		MoonSep:  angle.Sep(ra.Angle(), dec, mRA.Angle(), mDec).Deg(),
		MoonFrac: base.Illuminated(phase),
		SunAlt:   altitude(sRA.Rad(), sDec.Rad(), lat, lst) * 180 / math.Pi,
	}
}

// MoonPosition returns the moon's geocentric right ascension and
// declination in degrees.
func MoonPosition(mjd float64) (raDeg, decDeg float64) {
	ra, dec := moonEquatorial(mjd + MJDOffset)
	return ra.Rad() * 180 / math.Pi, dec.Deg()
}

// LocalSiderealRad returns the apparent local sidereal time in radians,
// in [0, 2π).
func LocalSiderealRad(mjd, longitudeDeg float64) float64 {
	gst := sidereal.Apparent(mjd + MJDOffset).Rad()
	lst := math.Mod(gst+longitudeDeg*math.Pi/180, 2*math.Pi)
	if lst < 0 {
		lst += 2 * math.Pi
	}
	return lst
}

// Airmass is the plane-parallel secant of the zenith distance, given the
// altitude in radians.
func Airmass(altRad float64) float64 {
	if altRad <= 0 {
		return math.Inf(1)
	}
	return 1 / math.Sin(altRad)
}

func moonEquatorial(jd float64) (unit.RA, unit.Angle) {
	λ, β, _ := moonposition.Position(jd)
	sε, cε := math.Sincos(nutation.MeanObliquity(jd).Rad())
	return coord.EclToEq(λ, β, sε, cε)
}

// altitude returns the altitude in radians of (ra, dec) for an observer at
// latitude lat with local sidereal time lst, all in radians.
func altitude(ra, dec, lat, lst float64) float64 {
	ha := lst - ra
	sinAlt := math.Sin(lat)*math.Sin(dec) + math.Cos(lat)*math.Cos(dec)*math.Cos(ha)
	return math.Asin(math.Max(-1, math.Min(1, sinAlt)))
}
