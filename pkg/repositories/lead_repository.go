// Package repositories implements PostgreSQL data access for the engine.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/relaycrm/outreach-engine/pkg/apperrors"
	"github.com/relaycrm/outreach-engine/pkg/database"
	"github.com/relaycrm/outreach-engine/pkg/models"
)

// leadColumns is the SELECT list shared by every lead query. Nullable text
// columns come back as empty strings, matching the models.Lead shape.
const leadColumns = `id, external_key, display_name,
	COALESCE(role_title, ''), COALESCE(organization, ''), COALESCE(geo_label, ''),
	tenure_months, COALESCE(campaign_tag, ''), stage, data_quality,
	COALESCE(owner_id, '00000000-0000-0000-0000-000000000000'::uuid),
	created_at, updated_at`

// LeadRepository defines the interface for lead data access.
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	Get(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	GetByExternalKey(ctx context.Context, externalKey string) (*models.Lead, error)
	List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, int, error)
	Update(ctx context.Context, lead *models.Lead) error

	// AdvanceStage moves the lead to target only if its current stage
	// precedes target in the funnel ordering. The comparison and write are
	// one conditional UPDATE, so concurrent calls for the same lead cannot
	// regress the stage. Returns the stage after the call and whether it
	// changed.
	AdvanceStage(ctx context.Context, id uuid.UUID, target models.Stage) (models.Stage, bool, error)

	// SetStage writes the stage unconditionally. This is the administrative
	// override; it bypasses the monotonic advance on purpose.
	SetStage(ctx context.Context, id uuid.UUID, stage models.Stage) (*models.Lead, error)

	// Upsert inserts the record or merges it into the existing lead with
	// the same external key. Merging is last-non-null-wins: empty incoming
	// fields never erase stored data. Data quality is reclassified from the
	// merged row. Returns the stored lead and whether a new row was created.
	Upsert(ctx context.Context, record models.LeadRecord, quality models.DataQuality, ownerID uuid.UUID) (*models.Lead, bool, error)
}

// leadRepository implements LeadRepository using PostgreSQL.
type leadRepository struct {
	db database.Querier
}

// NewLeadRepository creates a new lead repository.
func NewLeadRepository(db database.Querier) LeadRepository {
	return &leadRepository{db: db}
}

func scanLead(row pgx.Row) (*models.Lead, error) {
	var lead models.Lead
	err := row.Scan(
		&lead.ID,
		&lead.ExternalKey,
		&lead.DisplayName,
		&lead.RoleTitle,
		&lead.Organization,
		&lead.GeoLabel,
		&lead.TenureMonths,
		&lead.CampaignTag,
		&lead.Stage,
		&lead.DataQuality,
		&lead.OwnerID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// Create inserts a new lead. Returns apperrors.ErrConflict when a lead with
// the same external key already exists (the single-create path does not
// silently merge, unlike ingestion).
func (r *leadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}

	query := `
		INSERT INTO leads (id, external_key, display_name, role_title, organization,
		                   geo_label, tenure_months, campaign_tag, stage, data_quality, owner_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10, $11)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		lead.ID,
		lead.ExternalKey,
		lead.DisplayName,
		lead.RoleTitle,
		lead.Organization,
		lead.GeoLabel,
		lead.TenureMonths,
		lead.CampaignTag,
		lead.Stage,
		lead.DataQuality,
		uuidOrNil(lead.OwnerID),
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("lead with external key %q: %w", lead.ExternalKey, apperrors.ErrConflict)
		}
		return storeFailure("create lead", err)
	}

	return nil
}

// Get retrieves a lead by ID.
func (r *leadRepository) Get(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storeFailure("get lead", err)
	}
	return lead, nil
}

// GetByExternalKey retrieves a lead by its external key.
func (r *leadRepository) GetByExternalKey(ctx context.Context, externalKey string) (*models.Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE external_key = $1`, externalKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storeFailure("get lead by external key", err)
	}
	return lead, nil
}

// List returns leads matching the filter, newest first, with the total count.
func (r *leadRepository) List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, int, error) {
	where := "WHERE ($1 = '' OR stage = $1) AND ($2::uuid IS NULL OR owner_id = $2) AND ($3 = '' OR campaign_tag = $3)"
	args := []any{string(filter.Stage), uuidOrNil(filter.OwnerID), filter.Campaign}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM leads `+where, args...).Scan(&total); err != nil {
		return nil, 0, storeFailure("count leads", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+leadColumns+` FROM leads `+where+` ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, storeFailure("list leads", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, storeFailure("scan lead", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeFailure("list leads", err)
	}

	return leads, total, nil
}

// Update writes the lead's descriptive attributes and quality. Stage is
// deliberately not touched here; it changes only through AdvanceStage or
// SetStage.
func (r *leadRepository) Update(ctx context.Context, lead *models.Lead) error {
	query := `
		UPDATE leads
		SET display_name = $2, role_title = NULLIF($3, ''), organization = NULLIF($4, ''),
		    geo_label = NULLIF($5, ''), tenure_months = $6, campaign_tag = NULLIF($7, ''),
		    data_quality = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		lead.ID,
		lead.DisplayName,
		lead.RoleTitle,
		lead.Organization,
		lead.GeoLabel,
		lead.TenureMonths,
		lead.CampaignTag,
		lead.DataQuality,
	).Scan(&lead.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return storeFailure("update lead", err)
	}

	return nil
}

// AdvanceStage applies the monotonic stage-advance policy in one conditional
// UPDATE: the row only moves when its current stage is strictly below the
// target. When nothing moved we read the current stage back so the caller
// still learns the stage after the call.
func (r *leadRepository) AdvanceStage(ctx context.Context, id uuid.UUID, target models.Stage) (models.Stage, bool, error) {
	below := models.StagesBelow(target)
	allowed := make([]string, len(below))
	for i, s := range below {
		allowed[i] = string(s)
	}

	var after models.Stage
	err := r.db.QueryRow(ctx,
		`UPDATE leads SET stage = $2, updated_at = now()
		 WHERE id = $1 AND stage = ANY($3)
		 RETURNING stage`,
		id, target, allowed,
	).Scan(&after)
	if err == nil {
		return after, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, storeFailure("advance lead stage", err)
	}

	// Either the lead is already at or past the target, or it does not
	// exist; a plain read distinguishes the two.
	err = r.db.QueryRow(ctx, `SELECT stage FROM leads WHERE id = $1`, id).Scan(&after)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, apperrors.ErrNotFound
		}
		return "", false, storeFailure("read lead stage", err)
	}

	return after, false, nil
}

// SetStage writes the stage unconditionally and returns the updated lead.
func (r *leadRepository) SetStage(ctx context.Context, id uuid.UUID, stage models.Stage) (*models.Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx,
		`UPDATE leads SET stage = $2, updated_at = now() WHERE id = $1 RETURNING `+leadColumns,
		id, stage))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storeFailure("set lead stage", err)
	}
	return lead, nil
}

// Upsert resolves the record by external key in a single atomic statement.
// On first sighting the lead is created at stage Connected; on re-sighting
// the merge keeps every stored field unless the incoming value is non-empty.
// Quality is reclassified from the merged row inside the same statement.
// (xmax = 0) distinguishes insert from update without a race: two concurrent
// ingestions of the same new key cannot both observe an insert.
func (r *leadRepository) Upsert(ctx context.Context, record models.LeadRecord, quality models.DataQuality, ownerID uuid.UUID) (*models.Lead, bool, error) {
	query := `
		INSERT INTO leads (id, external_key, display_name, role_title, organization,
		                   geo_label, tenure_months, campaign_tag, stage, data_quality, owner_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10, $11)
		ON CONFLICT (external_key) DO UPDATE SET
			display_name  = COALESCE(NULLIF(EXCLUDED.display_name, ''), leads.display_name),
			role_title    = COALESCE(EXCLUDED.role_title, leads.role_title),
			organization  = COALESCE(EXCLUDED.organization, leads.organization),
			geo_label     = COALESCE(EXCLUDED.geo_label, leads.geo_label),
			tenure_months = COALESCE(EXCLUDED.tenure_months, leads.tenure_months),
			campaign_tag  = COALESCE(EXCLUDED.campaign_tag, leads.campaign_tag),
			data_quality  = CASE
				WHEN COALESCE(EXCLUDED.role_title, leads.role_title) IS NOT NULL
				 AND COALESCE(EXCLUDED.organization, leads.organization) IS NOT NULL
					THEN 'complete'
				WHEN COALESCE(EXCLUDED.role_title, leads.role_title) IS NOT NULL
				  OR COALESCE(EXCLUDED.organization, leads.organization) IS NOT NULL
					THEN 'partial'
				ELSE 'needs_enrichment'
			END,
			updated_at    = now()
		RETURNING ` + leadColumns + `, (xmax = 0)`

	var lead models.Lead
	var inserted bool
	err := r.db.QueryRow(ctx, query,
		uuid.New(),
		record.ExternalKey,
		record.DisplayName,
		record.RoleTitle,
		record.Organization,
		record.GeoLabel,
		record.TenureMonths,
		record.CampaignTag,
		models.StageConnected,
		quality,
		uuidOrNil(ownerID),
	).Scan(
		&lead.ID,
		&lead.ExternalKey,
		&lead.DisplayName,
		&lead.RoleTitle,
		&lead.Organization,
		&lead.GeoLabel,
		&lead.TenureMonths,
		&lead.CampaignTag,
		&lead.Stage,
		&lead.DataQuality,
		&lead.OwnerID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, storeFailure("upsert lead", err)
	}

	return &lead, inserted, nil
}

// Ensure leadRepository implements LeadRepository at compile time.
var _ LeadRepository = (*leadRepository)(nil)
