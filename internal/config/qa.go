package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical QA defaults file.
const DefaultConfigPath = "config/dailyqa.defaults.json"

// QAConfig holds the file locations and selection cuts for a daily QA scan.
// Every field is optional; the Get* accessors supply the survey defaults for
// anything a config file leaves out, so partial configs are safe.
type QAConfig struct {
	// Input locations
	ConditionsPath *string `json:"conditions_path,omitempty"`
	DeepRoot       *string `json:"deep_root,omitempty"`
	BlancRoot      *string `json:"blanc_root,omitempty"`
	DailyRoot      *string `json:"daily_root,omitempty"`

	// Conditions selection
	Program          *string  `json:"program,omitempty"`
	BlancCutoffNight *int64   `json:"blanc_cutoff_night,omitempty"` // YYYYMMDD, inclusive
	DarkMoonZDDeg    *float64 `json:"dark_moon_zd_deg,omitempty"`
	MinExpTime       *float64 `json:"min_exptime,omitempty"`
	MinSkyRMag       *float64 `json:"min_sky_rmag,omitempty"`

	// Truth quality cuts
	TruthMinDeltaChi2 *float64 `json:"truth_min_deltachi2,omitempty"`
	TruthZMin         *float64 `json:"truth_zmin,omitempty"`
	TruthZMax         *float64 `json:"truth_zmax,omitempty"`

	// Recovery cuts
	FitMinDeltaChi2 *float64 `json:"fit_min_deltachi2,omitempty"`
	MaxDZ           *float64 `json:"max_dz,omitempty"`
	BadFiberBit     *int     `json:"bad_fiber_bit,omitempty"`
	FibersPerPetal  *int     `json:"fibers_per_petal,omitempty"`
	StarCut         *bool    `json:"star_cut,omitempty"`

	// Observatory
	SiteLatitudeDeg    *float64 `json:"site_latitude_deg,omitempty"`
	SiteLongitudeDeg   *float64 `json:"site_longitude_deg,omitempty"` // east positive
	SiteUTCOffsetHours *float64 `json:"site_utc_offset_hours,omitempty"`

	// Results history; empty disables persistence.
	DatabasePath *string `json:"database_path,omitempty"`
}

// EmptyQAConfig returns a QAConfig with all fields set to nil.
func EmptyQAConfig() *QAConfig {
	return &QAConfig{}
}

// LoadQAConfig loads a QAConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadQAConfig(path string) (*QAConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyQAConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDefaultConfig loads DefaultConfigPath when it exists relative to the
// working directory, and falls back to built-in defaults otherwise.
func LoadDefaultConfig() (*QAConfig, error) {
	if _, err := os.Stat(DefaultConfigPath); err != nil {
		return EmptyQAConfig(), nil
	}
	return LoadQAConfig(DefaultConfigPath)
}

// Validate checks that the configuration values are valid.
func (c *QAConfig) Validate() error {
	if c.TruthZMin != nil && c.TruthZMax != nil && *c.TruthZMin >= *c.TruthZMax {
		return fmt.Errorf("truth_zmin (%g) must be below truth_zmax (%g)", *c.TruthZMin, *c.TruthZMax)
	}

	if c.MaxDZ != nil && *c.MaxDZ <= 0 {
		return fmt.Errorf("max_dz must be positive, got %g", *c.MaxDZ)
	}

	if c.BadFiberBit != nil && (*c.BadFiberBit < 0 || *c.BadFiberBit > 62) {
		return fmt.Errorf("bad_fiber_bit must be between 0 and 62, got %d", *c.BadFiberBit)
	}

	if c.FibersPerPetal != nil && *c.FibersPerPetal <= 0 {
		return fmt.Errorf("fibers_per_petal must be positive, got %d", *c.FibersPerPetal)
	}

	if c.SiteLatitudeDeg != nil && (*c.SiteLatitudeDeg < -90 || *c.SiteLatitudeDeg > 90) {
		return fmt.Errorf("site_latitude_deg must be between -90 and 90, got %g", *c.SiteLatitudeDeg)
	}

	if c.SiteUTCOffsetHours != nil && (*c.SiteUTCOffsetHours < -12 || *c.SiteUTCOffsetHours > 14) {
		return fmt.Errorf("site_utc_offset_hours out of range: %g", *c.SiteUTCOffsetHours)
	}

	if c.BlancCutoffNight != nil && (*c.BlancCutoffNight < 19000101 || *c.BlancCutoffNight > 99991231) {
		return fmt.Errorf("blanc_cutoff_night must be a YYYYMMDD night, got %d", *c.BlancCutoffNight)
	}

	return nil
}

// GetConditionsPath returns the exposure conditions catalog path.
func (c *QAConfig) GetConditionsPath() string {
	if c.ConditionsPath == nil {
		return "/global/cfs/cdirs/desi/survey/observations/SV1/sv1-exposures.fits"
	}
	return *c.ConditionsPath
}

// GetDeepRoot returns the root holding per-tile deep co-adds.
func (c *QAConfig) GetDeepRoot() string {
	if c.DeepRoot == nil {
		return "/global/homes/m/mjwilson/blanc/tiles"
	}
	return *c.DeepRoot
}

// GetBlancRoot returns the root of the single-exposure blanc production.
func (c *QAConfig) GetBlancRoot() string {
	if c.BlancRoot == nil {
		return "/global/cscratch1/sd/mjwilson/desi/SV1/spectra/exposures/NEXP1"
	}
	return *c.BlancRoot
}

// GetDailyRoot returns the root of the single-exposure daily production.
// The scan discovers its input files under this root as well.
func (c *QAConfig) GetDailyRoot() string {
	if c.DailyRoot == nil {
		return "/global/cscratch1/sd/mjwilson/desi/SV1/spectra/daily/exposures/NEXP1"
	}
	return *c.DailyRoot
}

// GetProgram returns the TARGETS value exposures must carry.
func (c *QAConfig) GetProgram() string {
	if c.Program == nil {
		return "BGS+MWS"
	}
	return *c.Program
}

// GetBlancCutoffNight returns the last night covered by the blanc production.
func (c *QAConfig) GetBlancCutoffNight() int64 {
	if c.BlancCutoffNight == nil {
		return 20201223
	}
	return *c.BlancCutoffNight
}

// GetDarkMoonZDDeg returns the moon zenith distance above which an exposure
// counts as dark.
func (c *QAConfig) GetDarkMoonZDDeg() float64 {
	if c.DarkMoonZDDeg == nil {
		return 90.0
	}
	return *c.DarkMoonZDDeg
}

// GetMinExpTime returns the minimum exposure time (s) of a truth exposure.
func (c *QAConfig) GetMinExpTime() float64 {
	if c.MinExpTime == nil {
		return 300.0
	}
	return *c.MinExpTime
}

// GetMinSkyRMag returns the sky brightness (AB mag) a truth exposure must exceed.
func (c *QAConfig) GetMinSkyRMag() float64 {
	if c.MinSkyRMag == nil {
		return 20.5
	}
	return *c.MinSkyRMag
}

// GetTruthMinDeltaChi2 returns the exclusive DELTACHI2 floor for truth rows.
func (c *QAConfig) GetTruthMinDeltaChi2() float64 {
	if c.TruthMinDeltaChi2 == nil {
		return 25.0
	}
	return *c.TruthMinDeltaChi2
}

// GetTruthZMin returns the inclusive lower truth redshift bound.
func (c *QAConfig) GetTruthZMin() float64 {
	if c.TruthZMin == nil {
		return 0.01
	}
	return *c.TruthZMin
}

// GetTruthZMax returns the exclusive upper truth redshift bound.
func (c *QAConfig) GetTruthZMax() float64 {
	if c.TruthZMax == nil {
		return 0.5
	}
	return *c.TruthZMax
}

// GetFitMinDeltaChi2 returns the inclusive DELTACHI2 floor for a recovered redshift.
func (c *QAConfig) GetFitMinDeltaChi2() float64 {
	if c.FitMinDeltaChi2 == nil {
		return 25.0
	}
	return *c.FitMinDeltaChi2
}

// GetMaxDZ returns the largest |z - z_true| counted as a recovery (1000 km/s).
func (c *QAConfig) GetMaxDZ() float64 {
	if c.MaxDZ == nil {
		return 0.003335
	}
	return *c.MaxDZ
}

// GetBadFiberMask returns the ZWARN mask marking a fiber as unusable.
func (c *QAConfig) GetBadFiberMask() int64 {
	if c.BadFiberBit == nil {
		return 1 << 9
	}
	return 1 << uint(*c.BadFiberBit)
}

// GetFibersPerPetal returns the fiber count every zbest file must hold.
func (c *QAConfig) GetFibersPerPetal() int {
	if c.FibersPerPetal == nil {
		return 500
	}
	return *c.FibersPerPetal
}

// GetStarCut reports whether Gaia-matched stars are removed from the samples.
func (c *QAConfig) GetStarCut() bool {
	if c.StarCut == nil {
		return false
	}
	return *c.StarCut
}

// GetSiteLatitudeDeg returns the observatory latitude (Kitt Peak by default).
func (c *QAConfig) GetSiteLatitudeDeg() float64 {
	if c.SiteLatitudeDeg == nil {
		return 31.96403
	}
	return *c.SiteLatitudeDeg
}

// GetSiteLongitudeDeg returns the observatory longitude, east positive.
func (c *QAConfig) GetSiteLongitudeDeg() float64 {
	if c.SiteLongitudeDeg == nil {
		return -111.59989
	}
	return *c.SiteLongitudeDeg
}

// GetSiteUTCOffsetHours returns the observatory's standard-time UTC offset.
func (c *QAConfig) GetSiteUTCOffsetHours() float64 {
	if c.SiteUTCOffsetHours == nil {
		return -7
	}
	return *c.SiteUTCOffsetHours
}

// GetDatabasePath returns the results database path, or "" when results
// are not persisted.
func (c *QAConfig) GetDatabasePath() string {
	if c.DatabasePath == nil {
		return ""
	}
	return *c.DatabasePath
}
