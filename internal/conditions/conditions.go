// Package conditions loads the survey exposures catalog: one row per
// exposure with its tile, night, exposure time and observing conditions.
package conditions

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/dailyqa/internal/fitstable"
	"github.com/banshee-data/dailyqa/internal/fsutil"
)

// ErrNoExposure is returned when an exposure id is not in the table.
var ErrNoExposure = errors.New("exposure not in conditions table")

// Production tags for truth exposures.
const (
	ProductionBlanc = "blanc"
	ProductionDaily = ""
)

// Exposure is one row of the conditions catalog. Optional columns absent
// from the catalog decode as NaN.
type Exposure struct {
	TileID  int64
	ExpID   int64
	Night   int64 // YYYYMMDD
	ExpTime float64
	Targets string

	TileRA  float64
	TileDec float64

	MoonZenithDeg float64 // GFA_MOON_ZD_DEG
	SkyRMag       float64 // SPECMODEL_SKY_RMAG_AB
	Transparency  float64 // GFA_TRANSPARENCY
	FWHMArcsec    float64 // GFA_FWHM_ASEC
	BDepth        float64
	RDepth        float64
	ZDepth        float64

	// Production is set by Dark; empty means the daily production.
	Production string
}

// Table is an ordered, read-only set of exposures.
type Table struct {
	rows  []Exposure
	byExp map[int64]int
}

// New builds a table from rows, keeping their order. When an exposure id
// repeats, lookups by exposure return the first row.
func New(rows []Exposure) *Table {
	t := &Table{
		rows:  rows,
		byExp: make(map[int64]int, len(rows)),
	}
	for i, r := range rows {
		if _, dup := t.byExp[r.ExpID]; !dup {
			t.byExp[r.ExpID] = i
		}
	}
	return t
}

// Load reads the first table extension of the catalog at path and keeps
// the exposures whose TARGETS equals program. An empty program keeps all.
func Load(fsys fsutil.FileSystem, path, program string) (*Table, error) {
	f, err := fitstable.Read(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conditions: %w", err)
	}
	if len(f.Tables) == 0 {
		return nil, fmt.Errorf("conditions file %s has no table extension", path)
	}

	all, err := Decode(f.Tables[0])
	if err != nil {
		return nil, err
	}
	if program == "" {
		return all, nil
	}
	return all.Filter(func(e Exposure) bool { return e.Targets == program }), nil
}

// Decode converts a catalog table into a Table.
func Decode(tbl *fitstable.Table) (*Table, error) {
	if err := tbl.Require("TILEID", "EXPID", "NIGHT", "EXPTIME", "TARGETS"); err != nil {
		return nil, err
	}

	rows := make([]Exposure, 0, tbl.Len())
	for i, r := range tbl.Rows {
		e, err := decodeRow(r)
		if err != nil {
			return nil, fmt.Errorf("conditions row %d: %w", i, err)
		}
		rows = append(rows, e)
	}
	return New(rows), nil
}

func decodeRow(r fitstable.Row) (Exposure, error) {
	var e Exposure
	var err error

	if e.TileID, err = r.Int("TILEID"); err != nil {
		return e, err
	}
	if e.ExpID, err = r.Int("EXPID"); err != nil {
		return e, err
	}
	if e.Night, err = r.Int("NIGHT"); err != nil {
		return e, err
	}
	if e.ExpTime, err = r.Float("EXPTIME"); err != nil {
		return e, err
	}
	if e.Targets, err = r.String("TARGETS"); err != nil {
		return e, err
	}

	nan := math.NaN()
	e.TileRA = r.FloatOr("TILERA", nan)
	e.TileDec = r.FloatOr("TILEDEC", nan)
	e.MoonZenithDeg = r.FloatOr("GFA_MOON_ZD_DEG", nan)
	e.SkyRMag = r.FloatOr("SPECMODEL_SKY_RMAG_AB", nan)
	e.Transparency = r.FloatOr("GFA_TRANSPARENCY", nan)
	e.FWHMArcsec = r.FloatOr("GFA_FWHM_ASEC", nan)
	e.BDepth = r.FloatOr("B_DEPTH", nan)
	e.RDepth = r.FloatOr("R_DEPTH", nan)
	e.ZDepth = r.FloatOr("Z_DEPTH", nan)
	return e, nil
}

// Len returns the number of exposures.
func (t *Table) Len() int {
	return len(t.rows)
}

// Exposures returns the rows in table order. The slice must not be modified.
func (t *Table) Exposures() []Exposure {
	return t.rows
}

// Filter returns a new table with the rows for which keep is true.
func (t *Table) Filter(keep func(Exposure) bool) *Table {
	var out []Exposure
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return New(out)
}

// ByExposure returns the row for exposure id expid.
func (t *Table) ByExposure(expid int64) (Exposure, error) {
	i, ok := t.byExp[expid]
	if !ok {
		return Exposure{}, fmt.Errorf("%w: %d", ErrNoExposure, expid)
	}
	return t.rows[i], nil
}

// ForTile returns the rows of a tile in table order.
func (t *Table) ForTile(tile int64) []Exposure {
	var out []Exposure
	for _, r := range t.rows {
		if r.TileID == tile {
			out = append(out, r)
		}
	}
	return out
}

// HasTile reports whether any row belongs to tile.
func (t *Table) HasTile(tile int64) bool {
	for _, r := range t.rows {
		if r.TileID == tile {
			return true
		}
	}
	return false
}

// Dark returns the exposures taken with the moon's zenith distance above
// moonZDDeg, each tagged with the production that reduced it: blanc up to
// and including blancCutoffNight, daily afterwards.
func Dark(t *Table, moonZDDeg float64, blancCutoffNight int64) *Table {
	var out []Exposure
	for _, r := range t.rows {
		if !(r.MoonZenithDeg > moonZDDeg) {
			continue
		}
		r.Production = ProductionBlanc
		if r.Night > blancCutoffNight {
			r.Production = ProductionDaily
		}
		out = append(out, r)
	}
	return New(out)
}

// DeepTiles returns the tiles that have a deep co-add directory,
// <deepRoot>/<tile>/deep. Directories not named by an integer tile id are
// ignored.
func DeepTiles(fsys fsutil.FileSystem, deepRoot string) (map[int64]bool, error) {
	matches, err := fsys.Glob(filepath.Join(deepRoot, "*", "deep"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob deep tiles: %w", err)
	}

	tiles := make(map[int64]bool, len(matches))
	for _, m := range matches {
		name := filepath.Base(filepath.Dir(m))
		tile, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			continue
		}
		tiles[tile] = true
	}
	return tiles, nil
}
