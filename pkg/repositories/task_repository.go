package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/relaycrm/outreach-engine/pkg/apperrors"
	"github.com/relaycrm/outreach-engine/pkg/database"
	"github.com/relaycrm/outreach-engine/pkg/models"
)

const taskColumns = `id, lead_id,
	COALESCE(owner_id, '00000000-0000-0000-0000-000000000000'::uuid),
	label, due_at, status, created_at, updated_at`

// TaskRepository defines the interface for task data access.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error)

	// ListOverdue returns open tasks whose due time has passed. "Overdue"
	// is a read-time comparison against now, not a stored flag.
	ListOverdue(ctx context.Context, now time.Time) ([]*models.Task, error)
}

type taskRepository struct {
	db database.Querier
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db database.Querier) TaskRepository {
	return &taskRepository{db: db}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var task models.Task
	err := row.Scan(
		&task.ID,
		&task.LeadID,
		&task.OwnerID,
		&task.Label,
		&task.DueAt,
		&task.Status,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Create inserts a new open task.
func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = models.TaskOpen
	}

	query := `
		INSERT INTO tasks (id, lead_id, owner_id, label, due_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		task.ID,
		task.LeadID,
		uuidOrNil(task.OwnerID),
		task.Label,
		task.DueAt,
		task.Status,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return storeFailure("create task", err)
	}

	return nil
}

// Get retrieves a task by ID.
func (r *taskRepository) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storeFailure("get task", err)
	}
	return task, nil
}

// SetStatus updates the task status and returns the updated task.
func (r *taskRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRow(ctx,
		`UPDATE tasks SET status = $2, updated_at = now() WHERE id = $1 RETURNING `+taskColumns,
		id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storeFailure("set task status", err)
	}
	return task, nil
}

// Delete removes a task by ID.
func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return storeFailure("delete task", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List returns tasks matching the filter, soonest due first.
func (r *taskRepository) List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE ($1::uuid IS NULL OR lead_id = $1)
		  AND ($2::uuid IS NULL OR owner_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY due_at ASC
		LIMIT $4 OFFSET $5`

	rows, err := r.db.Query(ctx, query,
		uuidOrNil(filter.LeadID), uuidOrNil(filter.OwnerID), string(filter.Status), limit, offset)
	if err != nil {
		return nil, storeFailure("list tasks", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ListOverdue returns open tasks due before now, most overdue first.
func (r *taskRepository) ListOverdue(ctx context.Context, now time.Time) ([]*models.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE status = 'open' AND due_at < $1 ORDER BY due_at ASC`,
		now)
	if err != nil {
		return nil, storeFailure("list overdue tasks", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, storeFailure("scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("read tasks", err)
	}
	return tasks, nil
}

var _ TaskRepository = (*taskRepository)(nil)
