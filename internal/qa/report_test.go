package qa

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dailyqa/internal/conditions"
	"github.com/banshee-data/dailyqa/internal/ephem"
)

func sampleResult() *ExposureResult {
	return &ExposureResult{
		ID:    ExposureID{Tile: 80619, Petal: 3, Exposure: 68672},
		Night: "2020-12-17",
		MJD:   59201.29,
		Conditions: conditions.Exposure{
			ExpTime:      600,
			Transparency: 0.95,
			FWHMArcsec:   1.1,
			BDepth:       180,
			RDepth:       210,
			ZDepth:       240,
		},
		Geometry: ephem.Geometry{Airmass: 1.2, MoonAlt: -30, MoonSep: 90, MoonFrac: 0.1},
		Recovery: ClassRecovery{
			BGS:    Recovery{Total: 4, Good: 3},
			Bright: Recovery{Total: 2, Good: 2},
		},
	}
}

func TestFormatRow(t *testing.T) {
	got := FormatRow(sampleResult())
	want := "2020-12-17\t\t 600.000\t0.950\t1.100\t180.000\t210.000\t240.000" +
		"\t\t1.200\t-30.000\t90.000\t0.100" +
		"\t\t75.000\t100.000\tnan" +
		"\t\t3\t2\t0"
	assert.Equal(t, want, got)
}

func TestFormatRow_NonFinite(t *testing.T) {
	r := sampleResult()
	r.Conditions.ExpTime = math.NaN()
	r.Conditions.ZDepth = math.NaN()
	r.Geometry.Airmass = math.Inf(1)

	fields := strings.Split(FormatRow(r), "\t")
	require.Len(t, fields, 21)
	assert.Equal(t, " nan", fields[2])
	assert.Equal(t, "nan", fields[7])
	assert.Equal(t, "inf", fields[9])
	assert.NotContains(t, FormatRow(r), "NaN")
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1.235", FormatFloat(1.23456))
	assert.Equal(t, "nan", FormatFloat(math.NaN()))
	assert.Equal(t, "inf", FormatFloat(math.Inf(1)))
	assert.Equal(t, "-inf", FormatFloat(math.Inf(-1)))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "nan", FormatPercent(Recovery{}))
	assert.Equal(t, "0.000", FormatPercent(Recovery{Total: 3}))
	assert.Equal(t, "33.333", FormatPercent(Recovery{Total: 3, Good: 1}))
}

func TestTSVReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &TSVReporter{W: &buf}

	require.NoError(t, r.Row(sampleResult()))
	require.NoError(t, r.Row(sampleResult()))
	require.NoError(t, r.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, FormatRow(sampleResult()), lines[0])
}

func TestTableReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &TableReporter{W: &buf}

	require.NoError(t, r.Row(sampleResult()))
	assert.Empty(t, buf.String(), "rows are buffered until Flush")

	require.NoError(t, r.Flush())
	out := buf.String()
	assert.Contains(t, out, "2020-12-17")
	assert.Contains(t, out, "80619")
	assert.Contains(t, out, "75.000")
	assert.Contains(t, out, "nan")

	buf.Reset()
	require.NoError(t, r.Flush())
	assert.Empty(t, buf.String(), "a second flush has nothing to render")
}
