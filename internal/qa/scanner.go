package qa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/dailyqa/internal/conditions"
	"github.com/banshee-data/dailyqa/internal/ephem"
	"github.com/banshee-data/dailyqa/internal/fsutil"
	"github.com/banshee-data/dailyqa/internal/monitoring"
	"github.com/banshee-data/dailyqa/internal/timeutil"
	"github.com/banshee-data/dailyqa/internal/truth"
)

// errSkipped marks an exposure that was passed over after its diagnostic
// had been printed.
var errSkipped = errors.New("exposure skipped")

// ResultStore persists exposure results across runs.
type ResultStore interface {
	HasExposure(id ExposureID) (bool, error)
	RecordExposure(runID string, r *ExposureResult) error
}

// Scanner runs the QA over the zbest files of a daily production.
type Scanner struct {
	FS         fsutil.FileSystem
	Conditions *conditions.Table
	Truth      *truth.Resolver

	TruthCut       truth.QualityCut
	Cuts           RecoveryCuts
	FibersPerPetal int

	Site     ephem.Site
	Location *time.Location // observatory local time, for night dates

	// Out receives the counts block and per-exposure diagnostics.
	Out      io.Writer
	Reporter Reporter

	// Store is optional. With SkipSeen, exposures it already holds are
	// not scanned again.
	Store    ResultStore
	RunID    string
	SkipSeen bool
}

// RunSummary aggregates one scan.
type RunSummary struct {
	Counts   Counts
	Reported int
	Skipped  int
	Failed   int

	// Mean recovery percentages over the exposures where the sample was
	// non-empty; NaN if there were none.
	MeanBGS    float64
	MeanBright float64
	MeanFaint  float64
}

// Run scans every zbest file of inv in order. It returns an error, after
// flushing the rows reported so far, when an exposure violates an
// ErrInvariant check, the store fails, or ctx is cancelled.
func (s *Scanner) Run(ctx context.Context, inv Inventory) (*RunSummary, error) {
	sum := &RunSummary{Counts: inv.Counts()}
	sum.Counts.Write(s.Out)

	var bgs, bright, faint []float64

	finish := func(err error) (*RunSummary, error) {
		if ferr := s.Reporter.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("failed to flush report: %w", ferr)
		}
		sum.MeanBGS, sum.MeanBright, sum.MeanFaint = mean(bgs), mean(bright), mean(faint)
		return sum, err
	}

	for _, path := range inv.Zbest {
		if err := ctx.Err(); err != nil {
			return finish(fmt.Errorf("scan interrupted: %w", err))
		}

		res, err := s.scanFile(path)
		switch {
		case err == nil:
		case errors.Is(err, ErrInvariant):
			return finish(fmt.Errorf("%s: %w", path, err))
		case errors.Is(err, errSkipped):
			sum.Skipped++
			continue
		default:
			sum.Failed++
			monitoring.Debugf("%s: %v", path, err)
			if id, perr := ParseZbestPath(path); perr == nil {
				fmt.Fprintf(s.Out, "Failed on %d\n", id.Exposure)
			} else {
				fmt.Fprintf(s.Out, "Failed on %s\n", path)
			}
			continue
		}

		if err := s.Reporter.Row(res); err != nil {
			return finish(fmt.Errorf("failed to write row: %w", err))
		}
		if s.Store != nil {
			if err := s.Store.RecordExposure(s.RunID, res); err != nil {
				return finish(fmt.Errorf("failed to record exposure %d: %w", res.ID.Exposure, err))
			}
		}
		sum.Reported++

		if pct, ok := res.Recovery.BGS.Percent(); ok {
			bgs = append(bgs, pct)
		}
		if pct, ok := res.Recovery.Bright.Percent(); ok {
			bright = append(bright, pct)
		}
		if pct, ok := res.Recovery.Faint.Percent(); ok {
			faint = append(faint, pct)
		}
	}

	sum, err := finish(nil)
	if err != nil {
		return sum, err
	}

	fmt.Fprint(s.Out, "\n\nDone.\n\n\n")
	fmt.Fprintf(s.Out, "Mean recovery over %d exposures: BGS %s, bright %s, faint %s\n",
		sum.Reported, formatMean(sum.MeanBGS), formatMean(sum.MeanBright), formatMean(sum.MeanFaint))
	return sum, nil
}

// scanFile wraps scanExposure so that a panic on one file does not end the
// scan.
func (s *Scanner) scanFile(path string) (res *ExposureResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("panic scanning %s: %v", path, r)
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.scanExposure(path)
}

func (s *Scanner) scanExposure(path string) (*ExposureResult, error) {
	id, err := ParseZbestPath(path)
	if err != nil {
		return nil, err
	}

	if s.SkipSeen && s.Store != nil {
		seen, err := s.Store.HasExposure(id)
		if err != nil {
			return nil, fmt.Errorf("failed to query store: %w", err)
		}
		if seen {
			monitoring.Debugf("skipping stored exposure %d petal %d", id.Exposure, id.Petal)
			return nil, errSkipped
		}
	}

	e, err := readExposure(s.FS, path)
	if err != nil {
		return nil, err
	}
	if err := e.checkIdentity(id); err != nil {
		return nil, err
	}

	night := timeutil.NightOf(timeutil.MJDToTime(e.mjd), s.Location)

	cat, err := s.Truth.Resolve(id.Tile, id.Petal, timeutil.NightKey(night), id.Exposure)
	if err != nil {
		if errors.Is(err, truth.ErrNoTruth) {
			return nil, errSkipped
		}
		return nil, err
	}

	cat = cat.Cut(s.TruthCut)
	if len(cat) == 0 {
		fmt.Fprintf(s.Out, "Excluded %d truth\n", id.Tile)
		return nil, errSkipped
	}

	cond, err := s.Conditions.ByExposure(id.Exposure)
	if err != nil {
		return nil, err
	}
	geom := ephem.Compute(e.mjd, cond.TileRA, cond.TileDec, s.Site)

	if err := e.checkFiberCount(s.FibersPerPetal); err != nil {
		return nil, err
	}

	return &ExposureResult{
		ID:         id,
		Night:      timeutil.ISODate(night),
		MJD:        e.mjd,
		Conditions: cond,
		Geometry:   geom,
		Recovery:   ComputeRecovery(e.fits, e.fibers, cat, s.Cuts),
	}, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

func formatMean(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.3f", v)
}
