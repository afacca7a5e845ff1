package book

import "github.com/google/uuid"

// CreateBookRequest for POST /books
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Author      string `json:"author" validate:"required,min=1,max=255"`
	Condition   string `json:"condition" validate:"required,condition"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Location    string `json:"location" validate:"omitempty,max=255"`
}

// AppendHistoryRequest for POST /books/{id}/history. The reading duration
// can be given directly in days or derived from the started/finished dates.
type AppendHistoryRequest struct {
	Action              string `json:"action" validate:"omitempty,history_action"`
	City                string `json:"city" validate:"omitempty,max=255"`
	Notes               string `json:"notes" validate:"omitempty,max=2000"`
	ReadingDurationDays *int   `json:"reading_duration_days" validate:"omitempty,gte=0"`
	StartedOn           string `json:"started_on" validate:"omitempty,datetime=2006-01-02"`
	FinishedOn          string `json:"finished_on" validate:"omitempty,datetime=2006-01-02"`
}

// ValuationResponse is advisory: point_value never changes because of it.
type ValuationResponse struct {
	BookID         uuid.UUID `json:"book_id"`
	Condition      Condition `json:"condition"`
	CurrentValue   int       `json:"current_value"`
	SuggestedValue int       `json:"suggested_value"`
	DemandScore    float64   `json:"demand_score"`
	RarityScore    float64   `json:"rarity_score"`
}

// HistoryResponse bundles a book with its story for the history endpoints.
type HistoryResponse struct {
	Book    *Book           `json:"book"`
	History []*HistoryEntry `json:"history"`
}
