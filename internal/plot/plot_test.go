package plot

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"github.com/banshee-data/dailyqa/internal/conditions"
	"github.com/banshee-data/dailyqa/internal/db"
	"github.com/banshee-data/dailyqa/internal/fsutil"
	"github.com/banshee-data/dailyqa/internal/qa"
)

func record(expid int64, mjd, rdepth float64, bgs, bright, faint qa.Recovery) db.ExposureRecord {
	return db.ExposureRecord{
		RunID: "run-1",
		ExposureResult: qa.ExposureResult{
			ID:         qa.ExposureID{Tile: 80619, Petal: 3, Exposure: expid},
			Night:      "2020-12-17",
			MJD:        mjd,
			Conditions: conditions.Exposure{RDepth: rdepth},
			Recovery:   qa.ClassRecovery{BGS: bgs, Bright: bright, Faint: faint},
		},
	}
}

func sampleRecords() []db.ExposureRecord {
	return []db.ExposureRecord{
		record(70002, 59203.3, 250, qa.Recovery{Total: 10, Good: 9}, qa.Recovery{Total: 5, Good: 5}, qa.Recovery{}),
		record(70000, 59201.3, 200, qa.Recovery{Total: 4, Good: 2}, qa.Recovery{Total: 2, Good: 1}, qa.Recovery{Total: 2, Good: 1}),
		record(70001, 59202.3, math.NaN(), qa.Recovery{Total: 8, Good: 6}, qa.Recovery{}, qa.Recovery{Total: 8, Good: 6}),
	}
}

func TestPoints(t *testing.T) {
	records := sampleRecords()

	bgs := Points(records, Samples[0], rDepth)
	assert.Equal(t, plotter.XYs{{X: 250, Y: 90}, {X: 200, Y: 50}}, bgs, "NaN depth is dropped")

	faint := Points(records, Samples[2], mjd)
	assert.Equal(t, plotter.XYs{{X: 59201.3, Y: 50}, {X: 59202.3, Y: 75}}, faint, "empty samples are dropped")
}

func TestSortByX(t *testing.T) {
	pts := plotter.XYs{{X: 3, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 3}}
	sortByX(pts)
	assert.Equal(t, plotter.XYs{{X: 1, Y: 2}, {X: 2, Y: 3}, {X: 3, Y: 1}}, pts)
}

func TestRender(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	run := &db.Run{ID: "run-1", Version: "test"}

	written, err := Render(fsys, "/out", run, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("/out", DepthPNG),
		filepath.Join("/out", MJDPNG),
		filepath.Join("/out", HTMLPage),
	}, written)

	png, err := fsys.ReadFile(filepath.Join("/out", DepthPNG))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "depth plot is a PNG")

	html, err := fsys.ReadFile(filepath.Join("/out", HTMLPage))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Recovery per exposure")
	assert.Contains(t, string(html), "run-1")
}

func TestRender_NoRecords(t *testing.T) {
	_, err := Render(fsutil.NewMemoryFileSystem(), "/out", &db.Run{ID: "empty"}, nil)
	assert.Error(t, err)
}

func TestWriteHTML_MissingValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, &db.Run{ID: "run-2"}, sampleRecords()))

	out := buf.String()
	assert.Contains(t, out, "Recovery vs. r-band depth")
	assert.Contains(t, out, `"-"`, "undefined recovery is rendered as a gap")
}
