package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jhalves/rss-sync/app/sync"
	"github.com/jhalves/rss-sync/app/tenant"
)

// SyncRunner is the per-tenant sync pipeline the task drives.
type SyncRunner interface {
	Run(ctx context.Context, sources []string, opts sync.Options) sync.Report
}

type SyncTenantTask struct {
	Task
	TenantConfig *tenant.Config
	runner       SyncRunner
	onReport     func(tenantID string, report sync.Report)
}

func NewSyncTenantTask(tenantConfig *tenant.Config, runner SyncRunner,
	onReport func(tenantID string, report sync.Report)) *SyncTenantTask {
	return &SyncTenantTask{
		Task:         NewTask(TaskTypeSyncTenant, tenantConfig.ID),
		TenantConfig: tenantConfig,
		runner:       runner,
		onReport:     onReport,
	}
}

func (t *SyncTenantTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.TenantConfig.Enabled {
		slog.Debug("Tenant disabled, skipping", "tenant", t.Tenant)
		return nil
	}

	opts := sync.Options{
		ImageImport:    t.TenantConfig.ImageImportEnabled(),
		ItemsPerFeed:   t.TenantConfig.ItemsPerFeed,
		ExtractContent: t.TenantConfig.ExtractContent,
	}

	report := t.runner.Run(ctx, t.TenantConfig.SourceURLs(), opts)

	if t.onReport != nil {
		t.onReport(t.Tenant, report)
	}

	created, updated, skipped, failed := report.Totals()
	slog.Info("Task completed",
		"type", "SyncTenant",
		"tenant", t.Tenant,
		"duration", t.GetDuration(),
		"sources", len(report.Sources),
		"created", created,
		"updated", updated,
		"skipped", skipped,
		"failed", failed)

	// Per-item and per-source failures are contained inside the run; only a
	// run that reached nothing at all is handed to the retry machinery.
	if report.AllSourcesFailed() {
		return fmt.Errorf("all %d sources failed for tenant %s", len(report.Sources), t.Tenant)
	}

	return nil
}
