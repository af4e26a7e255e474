package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CleanupConfig configures retention policies for cleanup jobs
type CleanupConfig struct {
	TaskRetention   time.Duration `mapstructure:"task_retention"`
	SyncRetention   time.Duration `mapstructure:"sync_retention"`
	ReportRetention time.Duration `mapstructure:"report_retention"`
}

// DefaultCleanupConfig returns the retention defaults
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		TaskRetention:   7 * 24 * time.Hour,
		SyncRetention:   30 * 24 * time.Hour,
		ReportRetention: 90 * 24 * time.Hour,
	}
}

func (c CleanupConfig) withDefaults() CleanupConfig {
	d := DefaultCleanupConfig()
	if c.TaskRetention <= 0 {
		c.TaskRetention = d.TaskRetention
	}
	if c.SyncRetention <= 0 {
		c.SyncRetention = d.SyncRetention
	}
	if c.ReportRetention <= 0 {
		c.ReportRetention = d.ReportRetention
	}
	return c
}

// TaskCleaner purges finished processing queue tasks
type TaskCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int, error)
}

// SyncPurger purges completed review sync items
type SyncPurger interface {
	Purge(ctx context.Context, olderThan time.Duration) (int, error)
}

// ReportPruner deletes archived reports
type ReportPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int, error)
}

// CleanupResult counts the rows each cleanup removed
type CleanupResult struct {
	Tasks   int `json:"tasks"`
	Syncs   int `json:"syncs"`
	Reports int `json:"reports"`
}

// Cleaner runs the retention cleanups. Any collaborator may be nil.
type Cleaner struct {
	tasks   TaskCleaner
	syncs   SyncPurger
	reports ReportPruner
	config  CleanupConfig
	logger  zerolog.Logger
}

// NewCleaner creates a cleaner; zero retentions take the defaults
func NewCleaner(tasks TaskCleaner, syncs SyncPurger, reports ReportPruner, config CleanupConfig, logger *zerolog.Logger) *Cleaner {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "cleanup").Logger()
	}
	return &Cleaner{
		tasks:   tasks,
		syncs:   syncs,
		reports: reports,
		config:  config.withDefaults(),
		logger:  l,
	}
}

// RunAll runs every cleanup in sequence. A failing cleanup is reported but
// does not stop the others.
func (c *Cleaner) RunAll(ctx context.Context) (*CleanupResult, error) {
	start := time.Now()
	result := &CleanupResult{}
	var errs []error

	if c.tasks != nil {
		n, err := c.tasks.Cleanup(ctx, c.config.TaskRetention)
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to clean up processing queue")
			errs = append(errs, fmt.Errorf("cleanup tasks: %w", err))
		}
		result.Tasks = n
	}
	if c.syncs != nil {
		n, err := c.syncs.Purge(ctx, c.config.SyncRetention)
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to purge sync queue")
			errs = append(errs, fmt.Errorf("purge syncs: %w", err))
		}
		result.Syncs = n
	}
	if c.reports != nil {
		n, err := c.reports.Prune(ctx, c.config.ReportRetention)
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to prune reports")
			errs = append(errs, fmt.Errorf("prune reports: %w", err))
		}
		result.Reports = n
	}

	c.logger.Info().
		Int("tasks_deleted", result.Tasks).
		Int("syncs_deleted", result.Syncs).
		Int("reports_deleted", result.Reports).
		Dur("duration", time.Since(start)).
		Msg("Cleanup completed")
	return result, errors.Join(errs...)
}
