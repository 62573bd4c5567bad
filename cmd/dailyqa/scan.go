package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/dailyqa/internal/conditions"
	"github.com/banshee-data/dailyqa/internal/config"
	"github.com/banshee-data/dailyqa/internal/db"
	"github.com/banshee-data/dailyqa/internal/ephem"
	"github.com/banshee-data/dailyqa/internal/fsutil"
	"github.com/banshee-data/dailyqa/internal/monitoring"
	"github.com/banshee-data/dailyqa/internal/qa"
	"github.com/banshee-data/dailyqa/internal/timeutil"
	"github.com/banshee-data/dailyqa/internal/truth"
	"github.com/banshee-data/dailyqa/internal/version"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var format string
	var skipSeen bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the daily production and report redshift recovery per exposure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			reporter, err := newReporter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			dbPath, err := ctx.databasePath()
			if err != nil {
				return err
			}
			if skipSeen && dbPath == "" {
				return fmt.Errorf("--skip-seen: %w", errNoDatabase)
			}
			return runScan(cmd.Context(), ctx, cfg, scanOptions{
				out:      cmd.OutOrStdout(),
				reporter: reporter,
				dbPath:   dbPath,
				skipSeen: skipSeen,
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "tsv", "Report format: tsv or table")
	cmd.Flags().BoolVar(&skipSeen, "skip-seen", false, "Skip exposures already stored in the results database")
	return cmd
}

func newReporter(format string, out io.Writer) (qa.Reporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "tsv", "":
		return &qa.TSVReporter{W: out}, nil
	case "table":
		return &qa.TableReporter{W: out}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want tsv or table)", format)
	}
}

type scanOptions struct {
	out      io.Writer
	reporter qa.Reporter
	dbPath   string
	skipSeen bool
}

func runScan(ctx context.Context, cc *commandContext, cfg *config.QAConfig, o scanOptions) error {
	start := cc.clock.Now()
	defer func() { monitoring.Debugf("scan took %s", cc.clock.Since(start)) }()

	scanner, err := newScanner(cc.fs, cfg, o.out, cc.verbose)
	if err != nil {
		return err
	}
	scanner.Reporter = o.reporter

	inv, err := qa.Discover(cc.fs, cfg.GetDailyRoot())
	if err != nil {
		return err
	}

	if o.dbPath == "" {
		_, err := scanner.Run(ctx, inv)
		return err
	}

	database, err := db.NewDB(o.dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := database.CreateRun(version.Version, cc.configPath, cfg.GetDailyRoot(), start)
	if err != nil {
		return err
	}
	monitoring.Debugf("recording run %s in %s", run.ID, o.dbPath)

	scanner.Store = database
	scanner.RunID = run.ID
	scanner.SkipSeen = o.skipSeen

	sum, scanErr := scanner.Run(ctx, inv)
	if sum != nil {
		if err := database.FinishRun(run.ID, sum, cc.clock.Now()); err != nil && scanErr == nil {
			return err
		}
	}
	return scanErr
}

// newScanner loads the conditions catalog and the deep tile list and wires
// a scanner from cfg. The caller sets the reporter and optional store.
func newScanner(fsys fsutil.FileSystem, cfg *config.QAConfig, out io.Writer, verbose bool) (*qa.Scanner, error) {
	cond, err := conditions.Load(fsys, cfg.GetConditionsPath(), cfg.GetProgram())
	if err != nil {
		return nil, fmt.Errorf("failed to load conditions: %w", err)
	}
	monitoring.Debugf("%d %s exposures in %s", cond.Len(), cfg.GetProgram(), cfg.GetConditionsPath())

	deep, err := conditions.DeepTiles(fsys, cfg.GetDeepRoot())
	if err != nil {
		return nil, err
	}
	dark := conditions.Dark(cond, cfg.GetDarkMoonZDDeg(), cfg.GetBlancCutoffNight())
	monitoring.Debugf("%d deep tiles, %d dark exposures", len(deep), dark.Len())

	return &qa.Scanner{
		FS:         fsys,
		Conditions: cond,
		Truth: &truth.Resolver{
			FS: fsys,
			Paths: truth.Paths{
				DeepRoot:  cfg.GetDeepRoot(),
				BlancRoot: cfg.GetBlancRoot(),
				DailyRoot: cfg.GetDailyRoot(),
			},
			Deep:       deep,
			Dark:       dark,
			MinExpTime: cfg.GetMinExpTime(),
			MinSkyRMag: cfg.GetMinSkyRMag(),
			Out:        out,
			Verbose:    verbose,
		},
		TruthCut: truth.QualityCut{
			MinDeltaChi2: cfg.GetTruthMinDeltaChi2(),
			ZMin:         cfg.GetTruthZMin(),
			ZMax:         cfg.GetTruthZMax(),
		},
		Cuts: qa.RecoveryCuts{
			BadFiberMask: cfg.GetBadFiberMask(),
			MinDeltaChi2: cfg.GetFitMinDeltaChi2(),
			MaxDZ:        cfg.GetMaxDZ(),
			StarCut:      cfg.GetStarCut(),
		},
		FibersPerPetal: cfg.GetFibersPerPetal(),
		Site: ephem.Site{
			LatitudeDeg:  cfg.GetSiteLatitudeDeg(),
			LongitudeDeg: cfg.GetSiteLongitudeDeg(),
		},
		Location: timeutil.FixedOffset(cfg.GetSiteUTCOffsetHours()),
		Out:      out,
	}, nil
}
