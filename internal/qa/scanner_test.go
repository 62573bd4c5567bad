package qa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dailyqa/internal/conditions"
	"github.com/banshee-data/dailyqa/internal/ephem"
	"github.com/banshee-data/dailyqa/internal/fsutil"
	"github.com/banshee-data/dailyqa/internal/testutil"
	"github.com/banshee-data/dailyqa/internal/timeutil"
	"github.com/banshee-data/dailyqa/internal/truth"
)

const (
	testTile  = 80619
	testPetal = 3
	testExpid = 70000
	// 2020-12-18 07:00 UTC, just after local midnight: night of 2020-12-17.
	testMJD = 59201.2917
)

var testPaths = truth.Paths{DeepRoot: "/deep", BlancRoot: "/blanc", DailyRoot: "/daily"}

func zbestPath(tile, petal, expid int64) string {
	return fmt.Sprintf("/daily/%d/zbest-%d-%d-%08d.fits", tile, petal, tile, expid)
}

func petalFixture(tile, expid int32) ([]testutil.ZbestRow, []testutil.FibermapRow, []testutil.ZbestRow) {
	return testutil.BGSPetal(tile, expid, testMJD)
}

func writePetal(t *testing.T, fsys fsutil.FileSystem, path string, zbest []testutil.ZbestRow, fmap []testutil.FibermapRow) {
	t.Helper()
	testutil.WriteFITS(t, fsys, path,
		testutil.TableSpec{Name: "ZBEST", Rows: zbest},
		testutil.TableSpec{Name: "FIBERMAP", Rows: fmap},
	)
}

func writeDeepTruth(t *testing.T, fsys fsutil.FileSystem, tile, petal int64, rows []testutil.ZbestRow) {
	t.Helper()
	testutil.WriteFITS(t, fsys, testPaths.Deep(tile, petal), testutil.TableSpec{Name: "ZBEST", Rows: rows})
}

func testConditions(expids ...int64) *conditions.Table {
	var rows []conditions.Exposure
	for _, e := range expids {
		rows = append(rows, conditions.Exposure{
			TileID: testTile, ExpID: e, Night: 20201217, ExpTime: 600, Targets: "BGS+MWS",
			TileRA: 150, TileDec: 2,
			Transparency: 0.9, FWHMArcsec: 1.2, BDepth: 100, RDepth: 200, ZDepth: 300,
		})
	}
	return conditions.New(rows)
}

func newTestScanner(fsys fsutil.FileSystem, cond *conditions.Table, deep ...int64) (*Scanner, *bytes.Buffer) {
	var out bytes.Buffer
	deepTiles := make(map[int64]bool)
	for _, d := range deep {
		deepTiles[d] = true
	}
	return &Scanner{
		FS:         fsys,
		Conditions: cond,
		Truth: &truth.Resolver{
			FS:    fsys,
			Paths: testPaths,
			Deep:  deepTiles,
			Dark:  conditions.New(nil),
			Out:   &out,
		},
		TruthCut:       truth.QualityCut{MinDeltaChi2: 25, ZMin: 0.01, ZMax: 0.5},
		Cuts:           defaultCut,
		FibersPerPetal: 500,
		Site:           ephem.KittPeak,
		Location:       timeutil.FixedOffset(-7),
		Out:            &out,
		Reporter:       &TSVReporter{W: &out},
	}, &out
}

func discover(t *testing.T, fsys fsutil.FileSystem) Inventory {
	t.Helper()
	inv, err := Discover(fsys, testPaths.DailyRoot)
	require.NoError(t, err)
	return inv
}

func TestScanner_EndToEnd(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	zbest, fmap, truthRows := petalFixture(testTile, testExpid)
	writePetal(t, fsys, zbestPath(testTile, testPetal, testExpid), zbest, fmap)
	writeDeepTruth(t, fsys, testTile, testPetal, truthRows)

	s, out := newTestScanner(fsys, testConditions(testExpid), testTile)

	sum, err := s.Run(context.Background(), discover(t, fsys))
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Reported)
	assert.InDelta(t, 80.0, sum.MeanBGS, 1e-9)
	assert.InDelta(t, 75.0, sum.MeanBright, 1e-9)
	assert.InDelta(t, 100.0, sum.MeanFaint, 1e-9)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Number of spectra files: 0\nNumber of zbest files: 1\n"))
	assert.Contains(t, text, "\n\nDone.\n\n\nMean recovery over 1 exposures: ")

	var row string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "2020-12-17\t") {
			row = line
		}
	}
	require.NotEmpty(t, row, "report row for night 2020-12-17")

	fields := strings.Split(row, "\t")
	require.Len(t, fields, 21)
	assert.Equal(t, " 600.000", fields[2])
	assert.Equal(t, []string{"80.000", "75.000", "100.000"}, fields[14:17])
	assert.Equal(t, []string{"200", "150", "50"}, fields[18:21])

	for _, f := range fields[14:17] {
		pct, err := strconv.ParseFloat(f, 64)
		require.NoError(t, err)
		assert.True(t, pct >= 0 && pct <= 100)
	}
}

func TestScanner_NoTruthSkips(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	zbest, fmap, _ := petalFixture(testTile, testExpid)
	writePetal(t, fsys, zbestPath(testTile, testPetal, testExpid), zbest, fmap)

	s, out := newTestScanner(fsys, testConditions(testExpid))

	sum, err := s.Run(context.Background(), discover(t, fsys))
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Reported)
	assert.Equal(t, 1, sum.Skipped)
	assert.Contains(t, out.String(), "No truth known for 80619.\n")
	assert.True(t, math.IsNaN(sum.MeanBGS))
	assert.Contains(t, out.String(), "BGS nan")
}

func TestScanner_ExcludedTruth(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	zbest, fmap, _ := petalFixture(testTile, testExpid)
	writePetal(t, fsys, zbestPath(testTile, testPetal, testExpid), zbest, fmap)
	writeDeepTruth(t, fsys, testTile, testPetal, []testutil.ZbestRow{
		{TargetID: 1, Z: 0.2, DeltaChi2: 10},
		{TargetID: 2, Z: 0.7, DeltaChi2: 100},
		{TargetID: 3, Z: 0.2, ZWarn: 4, DeltaChi2: 100},
	})

	s, out := newTestScanner(fsys, testConditions(testExpid), testTile)

	sum, err := s.Run(context.Background(), discover(t, fsys))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Contains(t, out.String(), "Excluded 80619 truth\n")
}

func TestScanner_MissingConditionsContinues(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	zbest, fmap, truthRows := petalFixture(testTile, testExpid)
	writePetal(t, fsys, zbestPath(testTile, testPetal, testExpid), zbest, fmap)
	writeDeepTruth(t, fsys, testTile, testPetal, truthRows)

	s, out := newTestScanner(fsys, testConditions(), testTile)

	sum, err := s.Run(context.Background(), discover(t, fsys))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Contains(t, out.String(), "Failed on 70000\n")
	assert.Contains(t, out.String(), "\n\nDone.\n\n")
}

func TestScanner_IdentityMismatchAborts(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	zbest, fmap, truthRows := petalFixture(testTile, testExpid+1)
	writePetal(t, fsys, zbestPath(testTile, testPetal, testExpid), zbest, fmap)
	writeDeepTruth(t, fsys, testTile, testPetal, truthRows)

	s, out := newTestScanner(fsys, testConditions(testExpid), testTile)

	_, err := s.Run(context.Background(), discover(t, fsys))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariant))
	assert.NotContains(t, out.String(), "Done.")
}

func TestScanner_FiberCountMismatchAborts(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	zbest, fmap, truthRows := petalFixture(testTile, testExpid)
	writePetal(t, fsys, zbestPath(testTile, testPetal, testExpid), zbest[:499], fmap)
	writeDeepTruth(t, fsys, testTile, testPetal, truthRows)

	s, _ := newTestScanner(fsys, testConditions(testExpid), testTile)

	_, err := s.Run(context.Background(), discover(t, fsys))
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestScanner_UnreadableFileContinues(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile(zbestPath(testTile, testPetal, testExpid), []byte("not fits"), 0644))

	s, out := newTestScanner(fsys, testConditions(testExpid), testTile)

	sum, err := s.Run(context.Background(), discover(t, fsys))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Contains(t, out.String(), "Failed on 70000\n")
}

func TestScanner_Cancelled(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile(zbestPath(testTile, testPetal, testExpid), []byte("x"), 0644))

	s, _ := newTestScanner(fsys, testConditions(testExpid), testTile)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, discover(t, fsys))
	assert.ErrorIs(t, err, context.Canceled)
}

type memStore struct {
	seen     map[ExposureID]bool
	recorded []*ExposureResult
}

func (m *memStore) HasExposure(id ExposureID) (bool, error) { return m.seen[id], nil }

func (m *memStore) RecordExposure(runID string, r *ExposureResult) error {
	m.recorded = append(m.recorded, r)
	return nil
}

func TestScanner_StoreAndSkipSeen(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	zbest, fmap, truthRows := petalFixture(testTile, testExpid)
	writePetal(t, fsys, zbestPath(testTile, testPetal, testExpid), zbest, fmap)
	writeDeepTruth(t, fsys, testTile, testPetal, truthRows)

	store := &memStore{seen: map[ExposureID]bool{}}
	s, _ := newTestScanner(fsys, testConditions(testExpid), testTile)
	s.Store = store
	s.RunID = "run-1"

	_, err := s.Run(context.Background(), discover(t, fsys))
	require.NoError(t, err)
	require.Len(t, store.recorded, 1)
	assert.Equal(t, ExposureID{Tile: testTile, Petal: testPetal, Exposure: testExpid}, store.recorded[0].ID)

	store.seen[store.recorded[0].ID] = true
	s.SkipSeen = true
	sum, err := s.Run(context.Background(), discover(t, fsys))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Len(t, store.recorded, 1)
}

type failingStore struct{ memStore }

func (f *failingStore) RecordExposure(string, *ExposureResult) error {
	return errors.New("disk full")
}

func TestScanner_StoreFailureAborts(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	zbest, fmap, truthRows := petalFixture(testTile, testExpid)
	writePetal(t, fsys, zbestPath(testTile, testPetal, testExpid), zbest, fmap)
	writeDeepTruth(t, fsys, testTile, testPetal, truthRows)

	s, _ := newTestScanner(fsys, testConditions(testExpid), testTile)
	s.Store = &failingStore{}

	_, err := s.Run(context.Background(), discover(t, fsys))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
