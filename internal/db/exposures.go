package db

import (
	"database/sql"
	"fmt"

	"github.com/banshee-data/dailyqa/internal/qa"
)

// ExposureRecord is a stored exposure result.
type ExposureRecord struct {
	RunID string
	qa.ExposureResult
}

// RecordExposure stores one exposure result of a run. It implements
// qa.ResultStore.
func (db *DB) RecordExposure(runID string, r *qa.ExposureResult) error {
	c, g, rec := r.Conditions, r.Geometry, r.Recovery
	_, err := db.DB.Exec(
		`INSERT INTO exposure_results (
			run_id, tile, petal, expid, night, mjd,
			exptime, transparency, fwhm_asec, sky_rmag, b_depth, r_depth, z_depth,
			airmass, moon_alt, moon_sep, moon_frac,
			bgs_total, bgs_good, bright_total, bright_good, faint_total, faint_good
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.ID.Tile, r.ID.Petal, r.ID.Exposure, r.Night, r.MJD,
		nullFloat(c.ExpTime), nullFloat(c.Transparency), nullFloat(c.FWHMArcsec), nullFloat(c.SkyRMag),
		nullFloat(c.BDepth), nullFloat(c.RDepth), nullFloat(c.ZDepth),
		nullFloat(g.Airmass), nullFloat(g.MoonAlt), nullFloat(g.MoonSep), nullFloat(g.MoonFrac),
		rec.BGS.Total, rec.BGS.Good, rec.Bright.Total, rec.Bright.Good, rec.Faint.Total, rec.Faint.Good,
	)
	if err != nil {
		return fmt.Errorf("failed to record exposure: %w", err)
	}
	return nil
}

// HasExposure reports whether any run has stored a result for id. It
// implements qa.ResultStore.
func (db *DB) HasExposure(id qa.ExposureID) (bool, error) {
	var exists bool
	err := db.DB.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM exposure_results WHERE tile = ? AND petal = ? AND expid = ?)`,
		id.Tile, id.Petal, id.Exposure,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up exposure: %w", err)
	}
	return exists, nil
}

// ExposureRecords returns the results stored for a run in insertion order.
func (db *DB) ExposureRecords(runID string) ([]ExposureRecord, error) {
	rows, err := db.DB.Query(`
		SELECT
			run_id, tile, petal, expid, night, mjd,
			exptime, transparency, fwhm_asec, sky_rmag, b_depth, r_depth, z_depth,
			airmass, moon_alt, moon_sep, moon_frac,
			bgs_total, bgs_good, bright_total, bright_good, faint_total, faint_good
		FROM exposure_results
		WHERE run_id = ?
		ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exposures: %w", err)
	}
	defer rows.Close()

	var records []ExposureRecord
	for rows.Next() {
		var r ExposureRecord
		var exptime, transp, fwhm, sky, bDepth, rDepth, zDepth sql.NullFloat64
		var airmass, moonAlt, moonSep, moonFrac sql.NullFloat64
		rec := &r.Recovery

		if err := rows.Scan(
			&r.RunID, &r.ID.Tile, &r.ID.Petal, &r.ID.Exposure, &r.Night, &r.MJD,
			&exptime, &transp, &fwhm, &sky, &bDepth, &rDepth, &zDepth,
			&airmass, &moonAlt, &moonSep, &moonFrac,
			&rec.BGS.Total, &rec.BGS.Good, &rec.Bright.Total, &rec.Bright.Good, &rec.Faint.Total, &rec.Faint.Good,
		); err != nil {
			return nil, fmt.Errorf("failed to scan exposure: %w", err)
		}

		r.Conditions.TileID = r.ID.Tile
		r.Conditions.ExpID = r.ID.Exposure
		r.Conditions.ExpTime = floatOrNaN(exptime)
		r.Conditions.Transparency = floatOrNaN(transp)
		r.Conditions.FWHMArcsec = floatOrNaN(fwhm)
		r.Conditions.SkyRMag = floatOrNaN(sky)
		r.Conditions.BDepth = floatOrNaN(bDepth)
		r.Conditions.RDepth = floatOrNaN(rDepth)
		r.Conditions.ZDepth = floatOrNaN(zDepth)
		r.Geometry.Airmass = floatOrNaN(airmass)
		r.Geometry.MoonAlt = floatOrNaN(moonAlt)
		r.Geometry.MoonSep = floatOrNaN(moonSep)
		r.Geometry.MoonFrac = floatOrNaN(moonFrac)

		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
