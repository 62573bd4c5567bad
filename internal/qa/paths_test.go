package qa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dailyqa/internal/fsutil"
)

func TestParseZbestPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    ExposureID
		wantErr bool
	}{
		{
			name: "daily file",
			path: "/daily/exposures/80619/zbest-3-80619-00068672.fits",
			want: ExposureID{Tile: 80619, Petal: 3, Exposure: 68672},
		},
		{
			name: "unpadded exposure",
			path: "/daily/80645/zbest-0-80645-70961.fits",
			want: ExposureID{Tile: 80645, Petal: 0, Exposure: 70961},
		},
		{name: "tile dir not numeric", path: "/daily/deep/zbest-3-80619-00068672.fits", wantErr: true},
		{name: "too few fields", path: "/daily/80619/zbest-3.fits", wantErr: true},
		{name: "petal not numeric", path: "/daily/80619/zbest-x-80619-00068672.fits", wantErr: true},
		{name: "exposure not numeric", path: "/daily/80619/zbest-3-80619-deep.fits", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseZbestPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscoverAndCounts(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	files := []string{
		"/daily/80619/spectra-3-80619-00068672.fits",
		"/daily/80619/spectra-4-80619-00068672.fits",
		"/daily/80619/spectra-3-80619-00068673.fits",
		"/daily/80645/spectra-0-80645-00070961.fits",
		"/daily/80619/zbest-3-80619-00068672.fits",
		"/daily/80645/zbest-0-80645-00070961.fits",
		"/daily/80645/coadd-0-80645-00070961.fits",
		"/daily/spectra-0-1-2.fits",
	}
	for _, f := range files {
		require.NoError(t, fsys.WriteFile(f, []byte("x"), 0644))
	}

	inv, err := Discover(fsys, "/daily")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/daily/80619/zbest-3-80619-00068672.fits",
		"/daily/80645/zbest-0-80645-00070961.fits",
	}, inv.Zbest)
	assert.Len(t, inv.Spectra, 4)

	c := inv.Counts()
	assert.Equal(t, Counts{SpectraFiles: 4, ZbestFiles: 2, Exposures: 3, Tiles: 2}, c)

	var buf bytes.Buffer
	c.Write(&buf)
	assert.Equal(t, "Number of spectra files: 4\n"+
		"Number of zbest files: 2\n"+
		"Number of exposures: 3\n"+
		"Number of tiles: 2\n\n\n\n", buf.String())
}

func TestDiscover_EmptyRoot(t *testing.T) {
	inv, err := Discover(fsutil.NewMemoryFileSystem(), "/nowhere")
	require.NoError(t, err)
	assert.Empty(t, inv.Zbest)
	assert.Equal(t, Counts{}, inv.Counts())
}
