// Package models contains domain types for outreach-engine.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage is a lead's position in the outreach funnel. Stages carry a total
// order and, outside the explicit administrative override, a lead's stage
// only ever moves forward in that order.
type Stage string

const (
	StageNew       Stage = "New"
	StageInvited   Stage = "Invited"
	StageConnected Stage = "Connected"
	StageMessaged  Stage = "Messaged"
	StageReplied   Stage = "Replied"
	StageMeeting   Stage = "Meeting"
)

// stageOrder positions each stage in the funnel. Used for comparison only,
// never for arithmetic.
var stageOrder = map[Stage]int{
	StageNew:       0,
	StageInvited:   1,
	StageConnected: 2,
	StageMessaged:  3,
	StageReplied:   4,
	StageMeeting:   5,
}

// Order returns the stage's position in the funnel ordering.
func (s Stage) Order() int {
	return stageOrder[s]
}

// Valid reports whether s is one of the known funnel stages.
func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Before reports whether s precedes other in the funnel ordering.
func (s Stage) Before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

// StagesBelow returns all stages that precede s in the funnel ordering.
// The lead repository passes this set to the conditional stage-advance
// UPDATE so the monotonic invariant is enforced in a single statement.
func StagesBelow(s Stage) []Stage {
	below := make([]Stage, 0, len(stageOrder))
	for stage, ord := range stageOrder {
		if ord < stageOrder[s] {
			below = append(below, stage)
		}
	}
	return below
}

// ParseStage validates and converts a raw stage string.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid stage %q", raw)
	}
	return s, nil
}

// DataQuality classifies how complete a lead's descriptive attributes are.
// It is derived from the stored attributes, not independently settable
// except by an explicit override on the edit path.
type DataQuality string

const (
	QualityComplete        DataQuality = "complete"
	QualityPartial         DataQuality = "partial"
	QualityNeedsEnrichment DataQuality = "needs_enrichment"
)

// Valid reports whether q is a known quality classification.
func (q DataQuality) Valid() bool {
	switch q {
	case QualityComplete, QualityPartial, QualityNeedsEnrichment:
		return true
	}
	return false
}

// DeriveQuality classifies a lead from its role title and organization:
// complete when both are present, partial when exactly one is, and
// needs_enrichment when neither is.
func DeriveQuality(roleTitle, organization string) DataQuality {
	switch {
	case roleTitle != "" && organization != "":
		return QualityComplete
	case roleTitle != "" || organization != "":
		return QualityPartial
	default:
		return QualityNeedsEnrichment
	}
}

// Lead is a tracked external contact moving through the outreach funnel.
// ExternalKey is the scraped profile URL and the natural deduplication key;
// it is unique across all leads.
type Lead struct {
	ID           uuid.UUID   `json:"id"`
	ExternalKey  string      `json:"external_key"`
	DisplayName  string      `json:"display_name"`
	RoleTitle    string      `json:"role_title,omitempty"`
	Organization string      `json:"organization,omitempty"`
	GeoLabel     string      `json:"geo_label,omitempty"`
	TenureMonths *int        `json:"tenure_months,omitempty"`
	CampaignTag  string      `json:"campaign_tag,omitempty"`
	Stage        Stage       `json:"stage"`
	DataQuality  DataQuality `json:"data_quality"`
	OwnerID      uuid.UUID   `json:"owner_id"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// LeadRecord is one externally observed contact record, produced by the
// browser extension's scraping heuristics or a manual entry form. Only the
// shape is trusted, never the provenance.
type LeadRecord struct {
	ExternalKey  string `json:"external_key"`
	DisplayName  string `json:"display_name"`
	RoleTitle    string `json:"role_title,omitempty"`
	Organization string `json:"organization,omitempty"`
	GeoLabel     string `json:"geo_label,omitempty"`
	TenureMonths *int   `json:"tenure_months,omitempty"`
	CampaignTag  string `json:"campaign_tag,omitempty"`
}

// LeadUpdate carries an attribute edit. Each field is optional: nil leaves
// the stored value untouched, a non-nil pointer applies the value verbatim
// (including clearing with an empty string). Stage is deliberately absent;
// stage changes go through the pipeline or the explicit override.
type LeadUpdate struct {
	DisplayName  *string      `json:"display_name,omitempty"`
	RoleTitle    *string      `json:"role_title,omitempty"`
	Organization *string      `json:"organization,omitempty"`
	GeoLabel     *string      `json:"geo_label,omitempty"`
	TenureMonths *int         `json:"tenure_months,omitempty"`
	CampaignTag  *string      `json:"campaign_tag,omitempty"`
	DataQuality  *DataQuality `json:"data_quality,omitempty"`
}

// LeadFilter narrows lead listings.
type LeadFilter struct {
	Stage    Stage
	OwnerID  uuid.UUID
	Campaign string
	Page     int
	Limit    int
}
