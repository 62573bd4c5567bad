package conditions

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dailyqa/internal/fitstable"
	"github.com/banshee-data/dailyqa/internal/fsutil"
	"github.com/banshee-data/dailyqa/internal/testutil"
)

func writeCatalog(t *testing.T, fsys fsutil.FileSystem, rows ...testutil.ConditionsRow) string {
	t.Helper()
	path := "/survey/sv1-exposures.fits"
	testutil.WriteFITS(t, fsys, path, testutil.TableSpec{Name: "EXPOSURES", Rows: rows})
	return path
}

func TestLoad_FiltersProgram(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()

	dark := testutil.DarkConditions(80605, 67972, 20201218)
	elg := testutil.DarkConditions(80606, 67973, 20201218)
	elg.Targets = "ELG"
	path := writeCatalog(t, fsys, dark, elg)

	tbl, err := Load(fsys, path, "BGS+MWS")
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())

	got, err := tbl.ByExposure(67972)
	require.NoError(t, err)

	want := Exposure{
		TileID:        80605,
		ExpID:         67972,
		Night:         20201218,
		ExpTime:       600,
		Targets:       "BGS+MWS",
		TileRA:        150,
		TileDec:       2,
		MoonZenithDeg: 120,
		SkyRMag:       21,
		Transparency:  0.95,
		FWHMArcsec:    1.1,
		BDepth:        180,
		RDepth:        210,
		ZDepth:        240,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("exposure mismatch (-want +got):\n%s", diff)
	}

	all, err := Load(fsys, path, "")
	require.NoError(t, err)
	assert.Equal(t, 2, all.Len())
}

func TestLoad_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()

	_, err := Load(fsys, "/survey/absent.fits", "BGS+MWS")
	assert.Error(t, err)

	type partial struct {
		TileID int32 `fits:"TILEID"`
	}
	testutil.WriteFITS(t, fsys, "/survey/partial.fits", testutil.TableSpec{Name: "EXPOSURES", Rows: []partial{{TileID: 1}}})
	_, err = Load(fsys, "/survey/partial.fits", "BGS+MWS")
	assert.True(t, errors.Is(err, fitstable.ErrNoColumn))
}

func TestDecode_OptionalColumnsAreNaN(t *testing.T) {
	tbl := &fitstable.Table{
		Name:    "EXPOSURES",
		Columns: []string{"TILEID", "EXPID", "NIGHT", "EXPTIME", "TARGETS"},
		Rows: []fitstable.Row{{
			"TILEID": int32(80605), "EXPID": int32(1), "NIGHT": "20201218", "EXPTIME": 300.0, "TARGETS": "BGS+MWS",
		}},
	}

	got, err := Decode(tbl)
	require.NoError(t, err)
	e := got.Exposures()[0]
	assert.Equal(t, int64(20201218), e.Night)
	assert.True(t, math.IsNaN(e.TileRA))
	assert.True(t, math.IsNaN(e.ZDepth))
}

func TestTable_Lookups(t *testing.T) {
	tbl := New([]Exposure{
		{TileID: 1, ExpID: 10},
		{TileID: 2, ExpID: 20},
		{TileID: 1, ExpID: 11},
	})

	assert.True(t, tbl.HasTile(1))
	assert.False(t, tbl.HasTile(3))

	rows := tbl.ForTile(1)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(10), rows[0].ExpID)
	assert.Equal(t, int64(11), rows[1].ExpID)

	_, err := tbl.ByExposure(99)
	assert.True(t, errors.Is(err, ErrNoExposure))
}

func TestDark(t *testing.T) {
	tbl := New([]Exposure{
		{TileID: 1, ExpID: 10, Night: 20201222, MoonZenithDeg: 120},
		{TileID: 1, ExpID: 11, Night: 20201223, MoonZenithDeg: 95},
		{TileID: 2, ExpID: 20, Night: 20201224, MoonZenithDeg: 100},
		{TileID: 3, ExpID: 30, Night: 20201224, MoonZenithDeg: 90},
		{TileID: 4, ExpID: 40, Night: 20201224, MoonZenithDeg: math.NaN()},
	})

	dark := Dark(tbl, 90, 20201223)
	require.Equal(t, 3, dark.Len())

	rows := dark.Exposures()
	assert.Equal(t, ProductionBlanc, rows[0].Production)
	assert.Equal(t, ProductionBlanc, rows[1].Production)
	assert.Equal(t, ProductionDaily, rows[2].Production)
	assert.False(t, dark.HasTile(3), "moon exactly at the cut is not dark")
	assert.False(t, dark.HasTile(4))

	// The source table is untouched.
	assert.Empty(t, tbl.Exposures()[0].Production)
}

func TestDeepTiles(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.MkdirAll("/tiles/80605/deep", 0755))
	require.NoError(t, fsys.MkdirAll("/tiles/80610/deep", 0755))
	require.NoError(t, fsys.MkdirAll("/tiles/notes/deep", 0755))
	require.NoError(t, fsys.MkdirAll("/tiles/80611/single", 0755))

	tiles, err := DeepTiles(fsys, "/tiles")
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{80605: true, 80610: true}, tiles)
}
