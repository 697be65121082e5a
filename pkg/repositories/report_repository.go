package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/relaycrm/outreach-engine/pkg/database"
	"github.com/relaycrm/outreach-engine/pkg/models"
)

// ActivityBucket is one day of recorded events.
type ActivityBucket struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// OwnerRollup aggregates one user's funnel and task load.
type OwnerRollup struct {
	OwnerID      uuid.UUID            `json:"owner_id"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	TotalLeads   int                  `json:"total_leads"`
	StageCounts  map[models.Stage]int `json:"stage_counts"`
	TotalEvents  int                  `json:"total_events"`
	OpenTasks    int                  `json:"open_tasks"`
	OverdueTasks int                  `json:"overdue_tasks"`
}

// ReportRepository serves the read-only projections over leads, events and
// tasks. Nothing here participates in the write-path invariants.
type ReportRepository interface {
	TotalLeads(ctx context.Context) (int, error)
	StageCounts(ctx context.Context) (map[models.Stage]int, error)
	EventKindCounts(ctx context.Context) (map[models.EventKind]int, error)
	OverdueTaskCount(ctx context.Context, now time.Time) (int, error)
	ActivityByDay(ctx context.Context, since time.Time) ([]ActivityBucket, error)
	OwnerRollups(ctx context.Context, now time.Time) ([]OwnerRollup, error)
}

type reportRepository struct {
	db database.Querier
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db database.Querier) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) TotalLeads(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&total); err != nil {
		return 0, storeFailure("count leads", err)
	}
	return total, nil
}

func (r *reportRepository) StageCounts(ctx context.Context) (map[models.Stage]int, error) {
	rows, err := r.db.Query(ctx, `SELECT stage, COUNT(*) FROM leads GROUP BY stage`)
	if err != nil {
		return nil, storeFailure("count leads by stage", err)
	}
	defer rows.Close()

	counts := make(map[models.Stage]int)
	for rows.Next() {
		var stage models.Stage
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, storeFailure("scan stage count", err)
		}
		counts[stage] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("count leads by stage", err)
	}

	return counts, nil
}

func (r *reportRepository) EventKindCounts(ctx context.Context) (map[models.EventKind]int, error) {
	rows, err := r.db.Query(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, storeFailure("count events by kind", err)
	}
	defer rows.Close()

	counts := make(map[models.EventKind]int)
	for rows.Next() {
		var kind models.EventKind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, storeFailure("scan event kind count", err)
		}
		counts[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("count events by kind", err)
	}

	return counts, nil
}

func (r *reportRepository) OverdueTaskCount(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE status = 'open' AND due_at < $1`, now,
	).Scan(&count)
	if err != nil {
		return 0, storeFailure("count overdue tasks", err)
	}
	return count, nil
}

func (r *reportRepository) ActivityByDay(ctx context.Context, since time.Time) ([]ActivityBucket, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DATE(created_at), COUNT(*)
		FROM events
		WHERE created_at >= $1
		GROUP BY DATE(created_at)
		ORDER BY DATE(created_at)`,
		since)
	if err != nil {
		return nil, storeFailure("count activity by day", err)
	}
	defer rows.Close()

	var buckets []ActivityBucket
	for rows.Next() {
		var b ActivityBucket
		if err := rows.Scan(&b.Date, &b.Count); err != nil {
			return nil, storeFailure("scan activity bucket", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("count activity by day", err)
	}

	return buckets, nil
}

func (r *reportRepository) OwnerRollups(ctx context.Context, now time.Time) ([]OwnerRollup, error) {
	query := `
		SELECT
			u.id, u.name, u.email,
			COUNT(DISTINCT l.id),
			COUNT(DISTINCT CASE WHEN l.stage = 'New' THEN l.id END),
			COUNT(DISTINCT CASE WHEN l.stage = 'Invited' THEN l.id END),
			COUNT(DISTINCT CASE WHEN l.stage = 'Connected' THEN l.id END),
			COUNT(DISTINCT CASE WHEN l.stage = 'Messaged' THEN l.id END),
			COUNT(DISTINCT CASE WHEN l.stage = 'Replied' THEN l.id END),
			COUNT(DISTINCT CASE WHEN l.stage = 'Meeting' THEN l.id END),
			COUNT(DISTINCT e.id),
			COUNT(DISTINCT CASE WHEN t.status = 'open' THEN t.id END),
			COUNT(DISTINCT CASE WHEN t.status = 'open' AND t.due_at < $1 THEN t.id END)
		FROM users u
		LEFT JOIN leads l ON l.owner_id = u.id
		LEFT JOIN events e ON e.actor_id = u.id
		LEFT JOIN tasks t ON t.owner_id = u.id
		WHERE u.is_active = TRUE
		GROUP BY u.id, u.name, u.email
		ORDER BY u.name`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, storeFailure("owner rollups", err)
	}
	defer rows.Close()

	var rollups []OwnerRollup
	for rows.Next() {
		var ru OwnerRollup
		counts := make([]int, 6)
		if err := rows.Scan(
			&ru.OwnerID, &ru.Name, &ru.Email,
			&ru.TotalLeads,
			&counts[0], &counts[1], &counts[2], &counts[3], &counts[4], &counts[5],
			&ru.TotalEvents,
			&ru.OpenTasks,
			&ru.OverdueTasks,
		); err != nil {
			return nil, storeFailure("scan owner rollup", err)
		}
		ru.StageCounts = map[models.Stage]int{
			models.StageNew:       counts[0],
			models.StageInvited:   counts[1],
			models.StageConnected: counts[2],
			models.StageMessaged:  counts[3],
			models.StageReplied:   counts[4],
			models.StageMeeting:   counts[5],
		}
		rollups = append(rollups, ru)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("owner rollups", err)
	}

	return rollups, nil
}

var _ ReportRepository = (*reportRepository)(nil)
