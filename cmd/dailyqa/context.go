package main

import (
	"errors"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/banshee-data/dailyqa/internal/config"
	"github.com/banshee-data/dailyqa/internal/db"
	"github.com/banshee-data/dailyqa/internal/fsutil"
	"github.com/banshee-data/dailyqa/internal/timeutil"
)

var errNoDatabase = errors.New("no results database configured: set database_path or pass --db")

type commandContext struct {
	configPath string
	dbPath     string
	verbose    bool

	fs    fsutil.FileSystem
	clock timeutil.Clock

	configOnce sync.Once
	config     *config.QAConfig
	configErr  error
}

func newCommandContext(fs fsutil.FileSystem, clock timeutil.Clock) *commandContext {
	return &commandContext{fs: fs, clock: clock}
}

func (c *commandContext) ensureConfig() (*config.QAConfig, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.configPath)
		if path == "" {
			c.config, c.configErr = config.LoadDefaultConfig()
			return
		}
		c.config, c.configErr = config.LoadQAConfig(path)
	})
	return c.config, c.configErr
}

// databasePath resolves --db against the configured database_path.
func (c *commandContext) databasePath() (string, error) {
	if p := strings.TrimSpace(c.dbPath); p != "" {
		return p, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.GetDatabasePath(), nil
}

// withDatabase opens the results database, migrated to the latest schema,
// for the duration of fn.
func (c *commandContext) withDatabase(fn func(*db.DB) error) error {
	path, err := c.databasePath()
	if err != nil {
		return err
	}
	if path == "" {
		return errNoDatabase
	}
	database, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
