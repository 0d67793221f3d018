package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskHierarchyScan walks the catalog looking for broken ancestor chains.
	TaskHierarchyScan = "catalog:hierarchy_scan"
	// TaskAuditPrune trims the denial audit trail to its retention window.
	TaskAuditPrune = "audit:prune"
)

// HierarchyScanPayload carries scheduling metadata for the integrity scan.
type HierarchyScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewHierarchyScanTask constructs an Asynq task for the integrity scan.
func NewHierarchyScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(HierarchyScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHierarchyScan, body, asynq.Queue(QueueDefault)), nil
}

// AuditPrunePayload carries scheduling metadata for the audit prune.
type AuditPrunePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewAuditPruneTask constructs an Asynq task for the audit prune.
func NewAuditPruneTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(AuditPrunePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, body, asynq.Queue(QueueDefault)), nil
}
