package testutil

import "github.com/banshee-data/dailyqa/internal/targetmask"

// Row layouts for the survey files dailyqa reads. Column names and widths
// follow the SV1 data model; only the columns the scan touches are present.

// ZbestRow is one row of a ZBEST extension.
type ZbestRow struct {
	TargetID  int64   `fits:"TARGETID"`
	Z         float64 `fits:"Z"`
	ZWarn     int64   `fits:"ZWARN"`
	DeltaChi2 float64 `fits:"DELTACHI2"`
}

// FibermapRow is one row of a FIBERMAP extension.
type FibermapRow struct {
	TargetID      int64   `fits:"TARGETID"`
	TileID        int32   `fits:"TILEID"`
	ExpID         int32   `fits:"EXPID"`
	MJD           float64 `fits:"MJD"`
	SV1DesiTarget int64   `fits:"SV1_DESI_TARGET"`
	SV1BGSTarget  int64   `fits:"SV1_BGS_TARGET"`
	FluxR         float32 `fits:"FLUX_R"`
	GaiaG         float32 `fits:"GAIA_PHOT_G_MEAN_MAG"`
}

// ConditionsRow is one row of the exposures catalog.
type ConditionsRow struct {
	TileID       int32   `fits:"TILEID"`
	ExpID        int32   `fits:"EXPID"`
	Night        int32   `fits:"NIGHT"`
	ExpTime      float64 `fits:"EXPTIME"`
	Targets      string  `fits:"TARGETS"`
	TileRA       float64 `fits:"TILERA"`
	TileDec      float64 `fits:"TILEDEC"`
	MoonZD       float64 `fits:"GFA_MOON_ZD_DEG"`
	SkyRMag      float64 `fits:"SPECMODEL_SKY_RMAG_AB"`
	Transparency float64 `fits:"GFA_TRANSPARENCY"`
	FWHM         float64 `fits:"GFA_FWHM_ASEC"`
	BDepth       float64 `fits:"B_DEPTH"`
	RDepth       float64 `fits:"R_DEPTH"`
	ZDepth       float64 `fits:"Z_DEPTH"`
}

// DarkConditions returns a conditions row for a BGS+MWS exposure taken with
// the moon down, with exposure time and sky good enough to serve as truth.
func DarkConditions(tile, expid, night int32) ConditionsRow {
	return ConditionsRow{
		TileID:       tile,
		ExpID:        expid,
		Night:        night,
		ExpTime:      600,
		Targets:      "BGS+MWS",
		TileRA:       150.0,
		TileDec:      2.0,
		MoonZD:       120,
		SkyRMag:      21.0,
		Transparency: 0.95,
		FWHM:         1.1,
		BDepth:       180,
		RDepth:       210,
		ZDepth:       240,
	}
}

// BGSPetal builds a full 500-fiber petal of one exposure, with every fiber
// observed at mjd plus a small per-fiber offset. Targets 1-200 are BGS
// bright and 201-300 BGS faint; the rest are not BGS. The reference catalog
// holds z = 0.2 for every BGS target. Fits recover targets 1-150 and
// 201-250; 151-200 miss the redshift and 251-300 sit on a bad fiber
// (ZWARN bit 9). That gives recoveries of 80% (BGS), 75% (bright) and
// 100% (faint).
func BGSPetal(tile, expid int32, mjd float64) (zbest []ZbestRow, fibermap []FibermapRow, truth []ZbestRow) {
	bgsAny := targetmask.SV1DesiMask.MustValue("BGS_ANY")
	bright := targetmask.SV1BGSMask.MustValue("BGS_BRIGHT")
	faint := targetmask.SV1BGSMask.MustValue("BGS_FAINT")

	for i := int64(1); i <= 500; i++ {
		fiber := FibermapRow{TargetID: i, TileID: tile, ExpID: expid, MJD: mjd + float64(i)*1e-6}
		fit := ZbestRow{TargetID: i, Z: 0.2, DeltaChi2: 50}

		switch {
		case i <= 200:
			fiber.SV1DesiTarget, fiber.SV1BGSTarget = bgsAny, bright
		case i <= 300:
			fiber.SV1DesiTarget, fiber.SV1BGSTarget = bgsAny, faint
		default:
			fit.Z = 1.1
		}
		switch {
		case i > 150 && i <= 200:
			fit.Z = 0.3
		case i > 250 && i <= 300:
			fit.ZWarn = 1 << 9
		}
		if i <= 300 {
			truth = append(truth, ZbestRow{TargetID: i, Z: 0.2, DeltaChi2: 100})
		}

		zbest = append(zbest, fit)
		fibermap = append(fibermap, fiber)
	}
	return zbest, fibermap, truth
}
