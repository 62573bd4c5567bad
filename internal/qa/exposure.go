package qa

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/dailyqa/internal/fitstable"
	"github.com/banshee-data/dailyqa/internal/fsutil"
)

// ErrInvariant marks a zbest file that contradicts its own name or the
// instrument layout. The scan aborts on it.
var ErrInvariant = errors.New("zbest invariant violated")

// Fit is the measured redshift of one fiber.
type Fit struct {
	TargetID  int64
	Z         float64
	ZWarn     int64
	DeltaChi2 float64
}

// Fiber is the targeting record of one fiber.
type Fiber struct {
	TargetID   int64
	DesiTarget int64
	BGSTarget  int64
	FluxR      float64
	GaiaG      float64
}

// exposureFile is a decoded zbest file.
type exposureFile struct {
	fits      []Fit
	fibers    []Fiber
	tiles     map[int64]bool
	exposures map[int64]bool
	mjd       float64 // earliest fiber MJD
}

func readExposure(fsys fsutil.FileSystem, path string) (*exposureFile, error) {
	f, err := fitstable.Read(fsys, path)
	if err != nil {
		return nil, err
	}

	zbest, err := f.Table("ZBEST")
	if err != nil {
		return nil, err
	}
	if err := zbest.Require("TARGETID", "Z", "ZWARN", "DELTACHI2"); err != nil {
		return nil, err
	}
	fmap, err := f.Table("FIBERMAP")
	if err != nil {
		return nil, err
	}
	if err := fmap.Require("TARGETID", "TILEID", "EXPID", "MJD", "SV1_DESI_TARGET", "SV1_BGS_TARGET"); err != nil {
		return nil, err
	}

	e := &exposureFile{
		fits:      make([]Fit, 0, zbest.Len()),
		fibers:    make([]Fiber, 0, fmap.Len()),
		tiles:     make(map[int64]bool),
		exposures: make(map[int64]bool),
		mjd:       math.Inf(1),
	}

	for i, row := range zbest.Rows {
		fit, err := decodeFit(row)
		if err != nil {
			return nil, fmt.Errorf("ZBEST row %d: %w", i, err)
		}
		e.fits = append(e.fits, fit)
	}

	for i, row := range fmap.Rows {
		fiber, tile, expid, mjd, err := decodeFiber(row)
		if err != nil {
			return nil, fmt.Errorf("FIBERMAP row %d: %w", i, err)
		}
		e.fibers = append(e.fibers, fiber)
		e.tiles[tile] = true
		e.exposures[expid] = true
		if mjd < e.mjd {
			e.mjd = mjd
		}
	}

	if len(e.fibers) == 0 {
		return nil, fmt.Errorf("%s: empty fibermap", path)
	}
	return e, nil
}

func decodeFit(row fitstable.Row) (Fit, error) {
	var fit Fit
	var err error
	if fit.TargetID, err = row.Int("TARGETID"); err != nil {
		return fit, err
	}
	if fit.Z, err = row.Float("Z"); err != nil {
		return fit, err
	}
	if fit.ZWarn, err = row.Int("ZWARN"); err != nil {
		return fit, err
	}
	fit.DeltaChi2, err = row.Float("DELTACHI2")
	return fit, err
}

func decodeFiber(row fitstable.Row) (fiber Fiber, tile, expid int64, mjd float64, err error) {
	if fiber.TargetID, err = row.Int("TARGETID"); err != nil {
		return
	}
	if fiber.DesiTarget, err = row.Int("SV1_DESI_TARGET"); err != nil {
		return
	}
	if fiber.BGSTarget, err = row.Int("SV1_BGS_TARGET"); err != nil {
		return
	}
	if tile, err = row.Int("TILEID"); err != nil {
		return
	}
	if expid, err = row.Int("EXPID"); err != nil {
		return
	}
	if mjd, err = row.Float("MJD"); err != nil {
		return
	}
	fiber.FluxR = row.FloatOr("FLUX_R", 0)
	fiber.GaiaG = row.FloatOr("GAIA_PHOT_G_MEAN_MAG", 0)
	return
}

// checkIdentity verifies that every fiber declares the tile and exposure the
// file name claims.
func (e *exposureFile) checkIdentity(id ExposureID) error {
	if len(e.tiles) != 1 || !e.tiles[id.Tile] {
		return fmt.Errorf("%w: file names tile %d, fibermap declares %v", ErrInvariant, id.Tile, sortedKeys(e.tiles))
	}
	if len(e.exposures) != 1 || !e.exposures[id.Exposure] {
		return fmt.Errorf("%w: file names exposure %d, fibermap declares %v", ErrInvariant, id.Exposure, sortedKeys(e.exposures))
	}
	return nil
}

// checkFiberCount verifies the ZBEST extension holds one row per fiber of
// a petal.
func (e *exposureFile) checkFiberCount(want int) error {
	if len(e.fits) != want {
		return fmt.Errorf("%w: %d ZBEST rows, want %d", ErrInvariant, len(e.fits), want)
	}
	return nil
}
