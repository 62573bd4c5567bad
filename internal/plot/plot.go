// Package plot renders the recovery history of a stored run: PNG figures
// with gonum/plot and an interactive HTML page with go-echarts.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/dailyqa/internal/db"
	"github.com/banshee-data/dailyqa/internal/fsutil"
	"github.com/banshee-data/dailyqa/internal/qa"
)

// Output file names, relative to the output directory.
const (
	DepthPNG = "recovery_rdepth.png"
	MJDPNG   = "recovery_mjd.png"
	HTMLPage = "recovery.html"
)

// Sample names one BGS sample and selects its recovery from a result.
type Sample struct {
	Name  string
	Color color.Color
	Pick  func(qa.ClassRecovery) qa.Recovery
}

// Samples are plotted in this order.
var Samples = []Sample{
	{Name: "BGS", Color: color.RGBA{R: 31, G: 119, B: 180, A: 255}, Pick: func(c qa.ClassRecovery) qa.Recovery { return c.BGS }},
	{Name: "Bright", Color: color.RGBA{R: 255, G: 127, B: 14, A: 255}, Pick: func(c qa.ClassRecovery) qa.Recovery { return c.Bright }},
	{Name: "Faint", Color: color.RGBA{R: 44, G: 160, B: 44, A: 255}, Pick: func(c qa.ClassRecovery) qa.Recovery { return c.Faint }},
}

// Points returns (x(r), recovery %) for the records where both are defined.
func Points(records []db.ExposureRecord, s Sample, x func(db.ExposureRecord) float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(records))
	for _, r := range records {
		xv := x(r)
		pct, ok := s.Pick(r.Recovery).Percent()
		if !ok || math.IsNaN(xv) || math.IsInf(xv, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: xv, Y: pct})
	}
	return pts
}

func rDepth(r db.ExposureRecord) float64 { return r.Conditions.RDepth }
func mjd(r db.ExposureRecord) float64 { return r.MJD }

// Render writes DepthPNG, MJDPNG and HTMLPage for run into outDir and
// returns the paths written.
func Render(fsys fsutil.FileSystem, outDir string, run *db.Run, records []db.ExposureRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("run %s has no stored exposures", run.ID)
	}
	if err := fsys.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	var written []string

	depth, err := recoveryPlot(records, "Recovery vs. r-band depth", "R_DEPTH", rDepth, false)
	if err != nil {
		return written, err
	}
	path := filepath.Join(outDir, DepthPNG)
	if err := savePNG(fsys, depth, path); err != nil {
		return written, fmt.Errorf("save depth plot: %w", err)
	}
	written = append(written, path)

	byDate, err := recoveryPlot(records, "Recovery vs. date", "MJD", mjd, true)
	if err != nil {
		return written, err
	}
	path = filepath.Join(outDir, MJDPNG)
	if err := savePNG(fsys, byDate, path); err != nil {
		return written, fmt.Errorf("save date plot: %w", err)
	}
	written = append(written, path)

	path = filepath.Join(outDir, HTMLPage)
	f, err := fsys.Create(path)
	if err != nil {
		return written, fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteHTML(f, run, records); err != nil {
		f.Close()
		return written, err
	}
	if err := f.Close(); err != nil {
		return written, err
	}
	written = append(written, path)

	return written, nil
}

// recoveryPlot draws one series per sample, as markers or, with lines set,
// as markers joined in x order.
func recoveryPlot(records []db.ExposureRecord, title, xLabel string, x func(db.ExposureRecord) float64, lines bool) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Recovery (%)"
	p.Y.Min = 0
	p.Y.Max = 100
	p.Add(plotter.NewGrid())

	for _, s := range Samples {
		pts := Points(records, s, x)
		if len(pts) == 0 {
			continue
		}

		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("%s scatter: %w", s.Name, err)
		}
		sc.GlyphStyle.Color = s.Color
		sc.GlyphStyle.Radius = vg.Points(3)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(s.Name, sc)

		if lines && len(pts) > 1 {
			sortByX(pts)
			l, err := plotter.NewLine(pts)
			if err != nil {
				return nil, fmt.Errorf("%s line: %w", s.Name, err)
			}
			l.Color = s.Color
			l.Width = vg.Points(1)
			p.Add(l)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func sortByX(pts plotter.XYs) {
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
}

func savePNG(fsys fsutil.FileSystem, p *plot.Plot, path string) error {
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
