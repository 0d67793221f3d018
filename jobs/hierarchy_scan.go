package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/atelier-markets/atelier/internal/jobs"
)

// HierarchyScanner looks for resources whose ancestor chain no longer
// resolves to a collection. Such resources are invisible to everyone except
// admins, so each finding is worth an operator's attention.
type HierarchyScanner struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewHierarchyScanner creates a scanner over the catalog tables.
func NewHierarchyScanner(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *HierarchyScanner {
	return &HierarchyScanner{pool: pool, logger: logger, metrics: metrics}
}

// ScanReport summarises one integrity scan.
type ScanReport struct {
	OrphanCategories int64
	OrphanProducts   int64
	OrphanOrders     int64
}

// Broken reports whether the scan found any dangling resources.
func (r ScanReport) Broken() bool {
	return r.OrphanCategories > 0 || r.OrphanProducts > 0 || r.OrphanOrders > 0
}

// Scan counts resources with a dangling parent reference at each tier.
func (s *HierarchyScanner) Scan(ctx context.Context) (ScanReport, error) {
	var report ScanReport
	checks := []struct {
		name  string
		query string
		dest  *int64
	}{
		{
			name: "categories",
			query: `SELECT COUNT(*) FROM categories cat
				LEFT JOIN collections c ON c.id = cat.collection_id
				WHERE c.id IS NULL`,
			dest: &report.OrphanCategories,
		},
		{
			name: "products",
			query: `SELECT COUNT(*) FROM products p
				LEFT JOIN categories cat ON cat.id = p.category_id
				LEFT JOIN collections c ON c.id = cat.collection_id
				WHERE cat.id IS NULL OR c.id IS NULL`,
			dest: &report.OrphanProducts,
		},
		{
			name: "orders",
			query: `SELECT COUNT(*) FROM orders o
				LEFT JOIN products p ON p.id = o.product_id
				LEFT JOIN categories cat ON cat.id = p.category_id
				LEFT JOIN collections c ON c.id = cat.collection_id
				WHERE p.id IS NULL OR cat.id IS NULL OR c.id IS NULL`,
			dest: &report.OrphanOrders,
		},
	}
	for _, check := range checks {
		if err := s.pool.QueryRow(ctx, check.query).Scan(check.dest); err != nil {
			return report, fmt.Errorf("hierarchy scan %s: %w", check.name, err)
		}
	}
	return report, nil
}

// Handle processes TaskHierarchyScan tasks.
func (s *HierarchyScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload HierarchyScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := s.metrics.Track("hierarchy_scan")
	start := time.Now()
	report, err := s.Scan(ctx)
	if err != nil {
		s.logger.Error("hierarchy scan failed", slog.Any("error", err))
		return tracker.End(err)
	}
	s.metrics.AddOrphans("category", report.OrphanCategories)
	s.metrics.AddOrphans("product", report.OrphanProducts)
	s.metrics.AddOrphans("order", report.OrphanOrders)
	attrs := []any{
		slog.Int64("orphan_categories", report.OrphanCategories),
		slog.Int64("orphan_products", report.OrphanProducts),
		slog.Int64("orphan_orders", report.OrphanOrders),
		slog.Duration("elapsed", time.Since(start)),
	}
	if report.Broken() {
		s.logger.Warn("hierarchy scan found dangling resources", attrs...)
	} else {
		s.logger.Info("hierarchy scan clean", attrs...)
	}
	return tracker.End(nil)
}
