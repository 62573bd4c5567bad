package qa

import (
	"math"

	"github.com/banshee-data/dailyqa/internal/targetmask"
	"github.com/banshee-data/dailyqa/internal/truth"
)

// Recovery counts the fibers of one sample with a truth redshift (Total)
// and those whose fit recovered it (Good).
type Recovery struct {
	Total int
	Good  int
}

// Percent returns 100 * Good / Total. ok is false for an empty sample, for
// which the rate is undefined.
func (r Recovery) Percent() (pct float64, ok bool) {
	if r.Total == 0 {
		return math.NaN(), false
	}
	return 100 * float64(r.Good) / float64(r.Total), true
}

func (r *Recovery) add(good bool) {
	r.Total++
	if good {
		r.Good++
	}
}

// ClassRecovery holds the recovery of the three BGS samples.
type ClassRecovery struct {
	BGS    Recovery
	Bright Recovery
	Faint  Recovery
}

// RecoveryCuts configures ComputeRecovery.
type RecoveryCuts struct {
	// BadFiberMask flags ZWARN bits of fibers that are excluded outright.
	BadFiberMask int64
	// MinDeltaChi2 is the inclusive DELTACHI2 floor of a recovered fit.
	MinDeltaChi2 float64
	// MaxDZ is the exclusive bound on |z - z_true| of a recovered fit.
	MaxDZ float64
	// StarCut removes Gaia stars from every sample.
	StarCut bool
}

// ComputeRecovery joins the fits of one petal with the truth catalog on
// TARGETID and counts, per sample, the good-fiber fits with a truth
// redshift and the ones that recovered it: ZWARN == 0,
// DELTACHI2 >= MinDeltaChi2 and |z - z_true| < MaxDZ.
func ComputeRecovery(fits []Fit, fibers []Fiber, cat truth.Catalog, cuts RecoveryCuts) ClassRecovery {
	classes := make(map[int64]targetmask.Class, len(fibers))
	for _, f := range fibers {
		nonstar := !cuts.StarCut || targetmask.NonStar(f.GaiaG, f.FluxR)
		classes[f.TargetID] = targetmask.Classify(f.DesiTarget, f.BGSTarget, nonstar)
	}

	truez := cat.ByTarget()

	var rec ClassRecovery
	for _, fit := range fits {
		if fit.ZWarn&cuts.BadFiberMask != 0 {
			continue
		}
		zt, ok := truez[fit.TargetID]
		if !ok {
			continue
		}

		good := fit.ZWarn == 0 && fit.DeltaChi2 >= cuts.MinDeltaChi2 && math.Abs(fit.Z-zt) < cuts.MaxDZ

		cls := classes[fit.TargetID]
		if cls.BGS {
			rec.BGS.add(good)
		}
		if cls.Bright {
			rec.Bright.add(good)
		}
		if cls.Faint {
			rec.Faint.add(good)
		}
	}
	return rec
}
