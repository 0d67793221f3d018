package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atelier-markets/atelier/internal/audit"
	jobmetrics "github.com/atelier-markets/atelier/internal/jobs"
)

// AuditPruner drops denial events past the retention window.
type AuditPruner struct {
	audit     *audit.Service
	retention time.Duration
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

// NewAuditPruner creates a pruner bound to the audit service.
func NewAuditPruner(service *audit.Service, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditPruner {
	return &AuditPruner{audit: service, retention: retention, logger: logger, metrics: metrics}
}

// Handle processes TaskAuditPrune tasks.
func (p *AuditPruner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := p.metrics.Track("audit_prune")
	removed, err := p.audit.Prune(ctx, p.retention)
	if err != nil {
		p.logger.Error("audit prune failed", slog.Any("error", err))
		return tracker.End(err)
	}
	p.logger.Info("audit prune complete",
		slog.Int64("removed", removed),
		slog.Duration("retention", p.retention))
	return tracker.End(nil)
}
