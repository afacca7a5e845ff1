package exchange

// CreateExchangeRequest represents exchange request creation data
type CreateExchangeRequest struct {
	BookID  string  `json:"book_id" validate:"required,uuid"`
	Message *string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

// DisputeRequest represents dispute creation data
type DisputeRequest struct {
	Reason      string  `json:"reason" validate:"required,min=3,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
}
