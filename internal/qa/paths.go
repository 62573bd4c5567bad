package qa

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/dailyqa/internal/fsutil"
)

// ExposureID identifies one petal of one exposure.
type ExposureID struct {
	Tile     int64
	Petal    int64
	Exposure int64
}

// ParseZbestPath reads the ids encoded in a daily zbest path,
// <root>/<tile>/zbest-<petal>-<tile>-<expid>.fits.
func ParseZbestPath(path string) (ExposureID, error) {
	var id ExposureID

	tile, err := strconv.ParseInt(filepath.Base(filepath.Dir(path)), 10, 64)
	if err != nil {
		return id, fmt.Errorf("tile directory of %s: %w", path, err)
	}

	fields := strings.Split(strings.TrimSuffix(filepath.Base(path), ".fits"), "-")
	if len(fields) < 3 {
		return id, fmt.Errorf("unexpected file name %s", filepath.Base(path))
	}
	petal, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return id, fmt.Errorf("petal of %s: %w", path, err)
	}
	expid, err := exposureField(path)
	if err != nil {
		return id, err
	}

	id.Tile, id.Petal, id.Exposure = tile, petal, expid
	return id, nil
}

// exposureField parses the last dash-separated field of a file name.
func exposureField(path string) (int64, error) {
	base := strings.TrimSuffix(filepath.Base(path), ".fits")
	field := base[strings.LastIndex(base, "-")+1:]
	expid, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("exposure of %s: %w", path, err)
	}
	return expid, nil
}

// Inventory is the set of per-exposure files found under a production root.
type Inventory struct {
	Spectra []string
	Zbest   []string
}

// Discover globs <root>/*/spectra-*.fits and <root>/*/zbest-*.fits.
func Discover(fsys fsutil.FileSystem, root string) (Inventory, error) {
	var inv Inventory
	var err error

	inv.Spectra, err = fsys.Glob(filepath.Join(root, "*", "spectra-*.fits"))
	if err != nil {
		return inv, fmt.Errorf("failed to glob spectra: %w", err)
	}
	inv.Zbest, err = fsys.Glob(filepath.Join(root, "*", "zbest-*.fits"))
	if err != nil {
		return inv, fmt.Errorf("failed to glob zbest: %w", err)
	}
	return inv, nil
}

// Counts summarises an Inventory.
type Counts struct {
	SpectraFiles int
	ZbestFiles   int
	Exposures    int
	Tiles        int
}

// Counts tallies files, and the distinct exposures and tiles among the
// spectra files.
func (inv Inventory) Counts() Counts {
	exposures := make(map[string]bool)
	tiles := make(map[string]bool)
	for _, p := range inv.Spectra {
		tiles[filepath.Base(filepath.Dir(p))] = true
		base := strings.TrimSuffix(filepath.Base(p), ".fits")
		exposures[base[strings.LastIndex(base, "-")+1:]] = true
	}
	return Counts{
		SpectraFiles: len(inv.Spectra),
		ZbestFiles:   len(inv.Zbest),
		Exposures:    len(exposures),
		Tiles:        len(tiles),
	}
}

// Write prints the counts block that opens a scan report.
func (c Counts) Write(w io.Writer) {
	fmt.Fprintf(w, "Number of spectra files: %d\n", c.SpectraFiles)
	fmt.Fprintf(w, "Number of zbest files: %d\n", c.ZbestFiles)
	fmt.Fprintf(w, "Number of exposures: %d\n", c.Exposures)
	fmt.Fprintf(w, "Number of tiles: %d\n", c.Tiles)
	fmt.Fprint(w, "\n\n\n")
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys(m map[int64]bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
