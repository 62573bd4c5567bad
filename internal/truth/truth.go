// Package truth locates and reads the reference redshift catalog a
// single-exposure fit is judged against.
package truth

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/dailyqa/internal/conditions"
	"github.com/banshee-data/dailyqa/internal/fitstable"
	"github.com/banshee-data/dailyqa/internal/fsutil"
	"github.com/banshee-data/dailyqa/internal/monitoring"
)

// ErrNoTruth means no reference catalog is available for an exposure.
// Callers skip the exposure.
var ErrNoTruth = errors.New("no truth available")

// Redshift is one reference fit.
type Redshift struct {
	TargetID  int64
	Z         float64
	ZWarn     int64
	DeltaChi2 float64
}

// Catalog is an ordered set of reference fits.
type Catalog []Redshift

// QualityCut selects trustworthy reference redshifts: ZWARN == 0,
// DELTACHI2 > MinDeltaChi2 and ZMin <= Z < ZMax.
type QualityCut struct {
	MinDeltaChi2 float64
	ZMin         float64
	ZMax         float64
}

// Cut returns the rows passing q, in order.
func (c Catalog) Cut(q QualityCut) Catalog {
	var out Catalog
	for _, r := range c {
		if r.ZWarn != 0 || !(r.DeltaChi2 > q.MinDeltaChi2) {
			continue
		}
		if r.Z < q.ZMin || !(r.Z < q.ZMax) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ByTarget indexes the catalog by TARGETID. The first row of a repeated
// target wins.
func (c Catalog) ByTarget() map[int64]float64 {
	m := make(map[int64]float64, len(c))
	for _, r := range c {
		if _, dup := m[r.TargetID]; !dup {
			m[r.TargetID] = r.Z
		}
	}
	return m
}

// ReadCatalog reads the ZBEST extension of the file at path.
func ReadCatalog(fsys fsutil.FileSystem, path string) (Catalog, error) {
	f, err := fitstable.Read(fsys, path)
	if err != nil {
		return nil, err
	}
	tbl, err := f.Table("ZBEST")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := tbl.Require("TARGETID", "Z", "ZWARN", "DELTACHI2"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cat := make(Catalog, 0, tbl.Len())
	for i, row := range tbl.Rows {
		var r Redshift
		if r.TargetID, err = row.Int("TARGETID"); err == nil {
			if r.Z, err = row.Float("Z"); err == nil {
				if r.ZWarn, err = row.Int("ZWARN"); err == nil {
					r.DeltaChi2, err = row.Float("DELTACHI2")
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i, err)
		}
		cat = append(cat, r)
	}
	return cat, nil
}

// Paths builds the file names of the three truth productions.
type Paths struct {
	DeepRoot  string
	BlancRoot string
	DailyRoot string
}

// Deep is the per-petal deep co-add of a tile.
func (p Paths) Deep(tile, petal int64) string {
	return filepath.Join(p.DeepRoot, fmt.Sprint(tile), "deep",
		fmt.Sprintf("zbest-%d-%d-deep.fits", petal, tile))
}

// Blanc is the single-exposure coadd in the blanc production. night is a
// YYYYMMDD key.
func (p Paths) Blanc(tile, petal int64, night string, expid int64) string {
	return filepath.Join(p.BlancRoot, fmt.Sprint(tile), night,
		fmt.Sprintf("coadd-%s-%d-%08d.fits", night, petal, expid))
}

// Daily is the single-exposure redshift file in the daily production.
func (p Paths) Daily(tile, petal, expid int64) string {
	return filepath.Join(p.DailyRoot, fmt.Sprint(tile),
		fmt.Sprintf("zbest-%d-%d-%08d.fits", petal, tile, expid))
}

// Resolver implements the truth lookup chain: deep co-add, then a dark
// exposure of the same tile, then nothing.
type Resolver struct {
	FS    fsutil.FileSystem
	Paths Paths

	// Deep holds the tiles with a deep co-add.
	Deep map[int64]bool
	// Dark holds the dark-time exposures, tagged with their production.
	Dark *conditions.Table

	MinExpTime float64
	MinSkyRMag float64

	// Out receives the per-exposure diagnostics.
	Out     io.Writer
	Verbose bool
}

// Resolve returns the truth catalog for one petal of one exposure. night is
// the YYYYMMDD observing night of the exposure. All failures are reported
// on Out and returned as ErrNoTruth.
func (r *Resolver) Resolve(tile, petal int64, night string, expid int64) (Catalog, error) {
	if r.Deep[tile] {
		path := r.Paths.Deep(tile, petal)
		cat, err := ReadCatalog(r.FS, path)
		if err != nil {
			fmt.Fprintf(r.Out, "Failed on %s in deep production.\n", path)
			monitoring.Debugf("deep truth %s: %v", path, err)
			return nil, fmt.Errorf("%w: %v", ErrNoTruth, err)
		}
		return cat, nil
	}

	if r.Dark != nil && r.Dark.HasTile(tile) {
		row, err := r.selectDark(tile)
		if err != nil {
			fmt.Fprintf(r.Out, "No dark exposure of %d passes the exposure time and sky cuts.\n", tile)
			return nil, err
		}

		var path, production string
		if row.Production == conditions.ProductionBlanc {
			path, production = r.Paths.Blanc(tile, petal, night, expid), "blanc"
		} else {
			path, production = r.Paths.Daily(tile, petal, expid), "daily"
		}

		cat, err := ReadCatalog(r.FS, path)
		if err != nil {
			fmt.Fprintf(r.Out, "Failed on %s in %s production.\n", path, production)
			monitoring.Debugf("%s truth %s: %v", production, path, err)
			return nil, fmt.Errorf("%w: %v", ErrNoTruth, err)
		}
		return cat, nil
	}

	fmt.Fprintf(r.Out, "No truth known for %d.\n", tile)
	return nil, ErrNoTruth
}

// selectDark picks the dark row that decides the production of a tile: the
// only row, or else the first in table order with a long enough exposure
// under a dark enough sky.
func (r *Resolver) selectDark(tile int64) (conditions.Exposure, error) {
	rows := r.Dark.ForTile(tile)
	if len(rows) == 1 {
		return rows[0], nil
	}

	if r.Verbose {
		r.describeDark(tile, rows)
	}

	for _, row := range rows {
		if row.ExpTime >= r.MinExpTime && row.SkyRMag > r.MinSkyRMag {
			return row, nil
		}
	}
	return conditions.Exposure{}, fmt.Errorf("%w: no qualifying dark exposure of tile %d", ErrNoTruth, tile)
}

func (r *Resolver) describeDark(tile int64, rows []conditions.Exposure) {
	expids := make([]string, len(rows))
	exptimes := make([]string, len(rows))
	nights := make([]string, len(rows))
	skies := make([]string, len(rows))
	for i, row := range rows {
		expids[i] = fmt.Sprint(row.ExpID)
		exptimes[i] = fmt.Sprintf("%.1f", row.ExpTime)
		nights[i] = fmt.Sprint(row.Night)
		skies[i] = fmt.Sprintf("%.1f", row.SkyRMag)
	}
	fmt.Fprintf(r.Out, "Found [%s] in bgs_dark for %d with exptimes [%s] on nights [%s] with spec. sky r [%s]\n",
		strings.Join(expids, " "), tile, strings.Join(exptimes, " "),
		strings.Join(nights, " "), strings.Join(skies, " "))
}
