/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  seating domain types.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

VALIDATION:
  Request types carry `validate` tags checked by go-playground/validator
  before the handler runs. Domain rules (capacity, constraints, roles) are
  enforced by the engine, not here.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/seating-engine/seating"
)

// =============================================================================
// GUESTS AND TABLES
// =============================================================================

type GuestDTO struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	Name      string   `json:"name"`
	HeadCount int      `json:"head_count"`
	Tags      []string `json:"tags"`
	AreaID    string   `json:"area_id,omitempty"`
	TableID   string   `json:"table_id,omitempty"`
	CreatedAt string   `json:"created_at"`
}

type CreateGuestRequest struct {
	ID        string   `json:"id" validate:"omitempty,max=64"`
	Name      string   `json:"name" validate:"required,max=200"`
	HeadCount int      `json:"head_count" validate:"required,min=1,max=100"`
	Tags      []string `json:"tags" validate:"omitempty,max=20,dive,required,max=64"`
	AreaID    string   `json:"area_id" validate:"omitempty,max=64"`
}

// TableDTO is a table with its current occupancy.
type TableDTO struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	Name        string   `json:"name"`
	Capacity    int      `json:"capacity"`
	AreaID      string   `json:"area_id,omitempty"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Occupied    int      `json:"occupied"`
	Available   int      `json:"available"`
	OccupantIDs []string `json:"occupant_ids"`
}

type CreateTableRequest struct {
	ID       string  `json:"id" validate:"omitempty,max=64"`
	Name     string  `json:"name" validate:"required,max=200"`
	Capacity int     `json:"capacity" validate:"required,min=1,max=1000"`
	AreaID   string  `json:"area_id" validate:"omitempty,max=64"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// =============================================================================
// SEATING
// =============================================================================

type AssignmentDTO struct {
	ID        string `json:"id"`
	GuestID   string `json:"guest_id"`
	TableID   string `json:"table_id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type AssignRequest struct {
	GuestID string `json:"guest_id" validate:"required"`
	TableID string `json:"table_id" validate:"required"`
}

type UnassignRequest struct {
	GuestID string `json:"guest_id" validate:"required"`
}

type MoveRequest struct {
	GuestID    string `json:"guest_id" validate:"required"`
	NewTableID string `json:"new_table_id" validate:"required"`
}

type SuggestionDTO struct {
	TableID   string   `json:"table_id"`
	TableName string   `json:"table_name"`
	Score     int      `json:"score"`
	Available int      `json:"available"`
	Reasons   []string `json:"reasons"`
}

type AutoAssignDetailDTO struct {
	GuestID   string `json:"guest_id"`
	GuestName string `json:"guest_name"`
	HeadCount int    `json:"head_count"`
	Assigned  bool   `json:"assigned"`
	TableID   string `json:"table_id,omitempty"`
	TableName string `json:"table_name,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type AutoAssignResponse struct {
	AssignedCount int                   `json:"assigned_count"`
	FailedCount   int                   `json:"failed_count"`
	Details       []AutoAssignDetailDTO `json:"details"`
	// Error is set when a store failure stopped the pass early.
	Error string `json:"error,omitempty"`
}

// =============================================================================
// CONSTRAINTS AND AUDIT
// =============================================================================

type ConstraintDTO struct {
	ID        string `json:"id"`
	Guest1ID  string `json:"guest1_id"`
	Guest2ID  string `json:"guest2_id"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

type CreateConstraintRequest struct {
	Guest1ID string `json:"guest1_id" validate:"required"`
	Guest2ID string `json:"guest2_id" validate:"required"`
	Type     string `json:"type" validate:"required"`
}

type AuditEntryDTO struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	GuestID   string         `json:"guest_id,omitempty"`
	TableID   string         `json:"table_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
	ProjectID  string `json:"project_id" validate:"omitempty,max=64"`
}

type LoadScenarioResponse struct {
	ProjectID   string `json:"project_id"`
	ScenarioID  string `json:"scenario_id"`
	Guests      int    `json:"guests"`
	Tables      int    `json:"tables"`
	Constraints int    `json:"constraints"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toGuestDTO(g seating.Guest, tableID seating.TableID) GuestDTO {
	tags := g.Tags
	if tags == nil {
		tags = []string{}
	}
	return GuestDTO{
		ID:        string(g.ID),
		ProjectID: string(g.ProjectID),
		Name:      g.Name,
		HeadCount: g.HeadCount,
		Tags:      tags,
		AreaID:    string(g.AreaID),
		TableID:   string(tableID),
		CreatedAt: formatTime(g.CreatedAt),
	}
}

func toTableDTO(o seating.TableOccupancy) TableDTO {
	ids := make([]string, len(o.Occupants))
	for i, g := range o.Occupants {
		ids[i] = string(g.ID)
	}
	return TableDTO{
		ID:          string(o.Table.ID),
		ProjectID:   string(o.Table.ProjectID),
		Name:        o.Table.Name,
		Capacity:    o.Table.Capacity,
		AreaID:      string(o.Table.AreaID),
		X:           o.Table.X,
		Y:           o.Table.Y,
		Occupied:    o.Occupancy.Occupied,
		Available:   o.Occupancy.Available,
		OccupantIDs: ids,
	}
}

func toAssignmentDTO(a seating.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:        string(a.ID),
		GuestID:   string(a.GuestID),
		TableID:   string(a.TableID),
		CreatedAt: formatTime(a.CreatedAt),
		UpdatedAt: formatTime(a.UpdatedAt),
	}
}

func toConstraintDTO(c seating.Constraint) ConstraintDTO {
	return ConstraintDTO{
		ID:        string(c.ID),
		Guest1ID:  string(c.Guest1ID),
		Guest2ID:  string(c.Guest2ID),
		Type:      string(c.Type),
		CreatedAt: formatTime(c.CreatedAt),
	}
}

func toAutoAssignResponse(r *seating.AutoAssignResult) AutoAssignResponse {
	resp := AutoAssignResponse{Details: []AutoAssignDetailDTO{}}
	if r == nil {
		return resp
	}
	resp.AssignedCount = r.AssignedCount
	resp.FailedCount = r.FailedCount
	for _, d := range r.Details {
		resp.Details = append(resp.Details, AutoAssignDetailDTO{
			GuestID:   string(d.GuestID),
			GuestName: d.GuestName,
			HeadCount: d.HeadCount,
			Assigned:  d.Assigned,
			TableID:   string(d.TableID),
			TableName: d.TableName,
			Reason:    d.Reason,
		})
	}
	return resp
}

func toAuditEntryDTO(e seating.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorID:   e.ActorID,
		Action:    string(e.Action),
		GuestID:   string(e.GuestID),
		TableID:   string(e.TableID),
		Payload:   e.Payload,
	}
}
