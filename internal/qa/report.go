package qa

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/banshee-data/dailyqa/internal/conditions"
	"github.com/banshee-data/dailyqa/internal/ephem"
)

// ExposureResult is the QA summary of one petal of one exposure.
type ExposureResult struct {
	ID         ExposureID
	Night      string // YYYY-MM-DD
	MJD        float64
	Conditions conditions.Exposure
	Geometry   ephem.Geometry
	Recovery   ClassRecovery
}

// Reporter renders exposure results.
type Reporter interface {
	Row(r *ExposureResult) error
	Flush() error
}

// FormatPercent renders a recovery rate, "nan" when undefined.
func FormatPercent(r Recovery) string {
	pct, ok := r.Percent()
	if !ok {
		return "nan"
	}
	return strconv.FormatFloat(pct, 'f', 3, 64)
}

// FormatFloat renders v with three decimals, or "nan", "inf" and "-inf"
// for non-finite values. A missing catalog column decodes to NaN and a
// pointing below the horizon has infinite airmass.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// FormatRow renders one tab-separated report line (without newline):
// night, exposure time, transparency, seeing, b/r/z depths, airmass, moon
// altitude, separation and illumination, recovery percentages for the BGS,
// bright and faint samples, and the recovered counts.
func FormatRow(r *ExposureResult) string {
	c, g, rec := r.Conditions, r.Geometry, r.Recovery
	f := FormatFloat
	return fmt.Sprintf("%s\t\t%s\t%s\t%s\t%s\t%s\t%s\t\t%s\t%s\t%s\t%s\t\t%s\t%s\t%s\t\t%d\t%d\t%d",
		r.Night, exptime(c.ExpTime), f(c.Transparency), f(c.FWHMArcsec),
		f(c.BDepth), f(c.RDepth), f(c.ZDepth),
		f(g.Airmass), f(g.MoonAlt), f(g.MoonSep), f(g.MoonFrac),
		FormatPercent(rec.BGS), FormatPercent(rec.Bright), FormatPercent(rec.Faint),
		rec.BGS.Good, rec.Bright.Good, rec.Faint.Good)
}

// exptime keeps the space sign flag of the exposure-time column.
func exptime(v float64) string {
	s := FormatFloat(v)
	if s[0] != '-' {
		s = " " + s
	}
	return s
}

// TSVReporter writes each row as soon as it is produced.
type TSVReporter struct {
	W io.Writer
}

// Row writes one line.
func (t *TSVReporter) Row(r *ExposureResult) error {
	_, err := fmt.Fprintln(t.W, FormatRow(r))
	return err
}

// Flush is a no-op.
func (t *TSVReporter) Flush() error { return nil }

// TableReporter collects rows and renders them as one table on Flush.
type TableReporter struct {
	W    io.Writer
	rows []*ExposureResult
}

// Row buffers r.
func (t *TableReporter) Row(r *ExposureResult) error {
	t.rows = append(t.rows, r)
	return nil
}

var tableHeader = table.Row{
	"Night", "Tile", "Petal", "Expid", "Exptime", "Transp", "FWHM",
	"B depth", "R depth", "Z depth", "Airmass", "Moon alt", "Moon sep", "Moon frac",
	"BGS %", "Bright %", "Faint %", "BGS good", "Bright good", "Faint good",
}

// Flush renders the buffered rows.
func (t *TableReporter) Flush() error {
	if len(t.rows) == 0 {
		return nil
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(tableHeader)

	f3 := FormatFloat
	f1 := func(v float64) string {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FormatFloat(v)
		}
		return strconv.FormatFloat(v, 'f', 1, 64)
	}

	for _, r := range t.rows {
		c, g, rec := r.Conditions, r.Geometry, r.Recovery
		tw.AppendRow(table.Row{
			r.Night, r.ID.Tile, r.ID.Petal, r.ID.Exposure,
			f1(c.ExpTime), f3(c.Transparency), f3(c.FWHMArcsec),
			f1(c.BDepth), f1(c.RDepth), f1(c.ZDepth),
			f3(g.Airmass), f1(g.MoonAlt), f1(g.MoonSep), f3(g.MoonFrac),
			FormatPercent(rec.BGS), FormatPercent(rec.Bright), FormatPercent(rec.Faint),
			rec.BGS.Good, rec.Bright.Good, rec.Faint.Good,
		})
	}

	configs := make([]table.ColumnConfig, 0, len(tableHeader))
	for i := range tableHeader {
		align := text.AlignRight
		if i == 0 {
			align = text.AlignLeft
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	_, err := fmt.Fprintln(t.W, tw.Render())
	t.rows = nil
	return err
}
