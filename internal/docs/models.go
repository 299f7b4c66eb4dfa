package docs

// APIResponse is the envelope every endpoint returns
type APIResponse struct {
	Success   bool        `json:"success" example:"true"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty" example:"6f1c2e0a-9b7d-4d8e-8a61-2f0c5b9e7d11"`
	Timestamp int64       `json:"timestamp,omitempty" example:"1760745600"`
	Version   string      `json:"version,omitempty" example:"v1"`
}

// PaginatedResponse is APIResponse with pagination metadata
type PaginatedResponse struct {
	APIResponse
	Meta struct {
		Pagination PaginationMeta `json:"pagination"`
	} `json:"meta"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	Page       int   `json:"page" example:"1"`
	PageSize   int   `json:"page_size" example:"20"`
	Total      int64 `json:"total" example:"95"`
	TotalPages int   `json:"total_pages" example:"5"`
	HasNext    bool  `json:"has_next" example:"true"`
	HasPrev    bool  `json:"has_prev" example:"false"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Type    string       `json:"type" example:"VALIDATION_ERROR"`
	Message string       `json:"message" example:"invalid award points request"`
	Code    string       `json:"code,omitempty" example:"DUPLICATE_THRESHOLD"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError names one rejected request field
type FieldError struct {
	Field string `json:"field" example:"amount"`
	Rule  string `json:"rule" example:"gt"`
}

// PointsRequest is the body of the award and deduct endpoints
type PointsRequest struct {
	UserID          int64  `json:"user_id" example:"42"`
	Amount          int    `json:"amount" example:"10" minimum:"1" maximum:"1000000"`
	SourceType      string `json:"source_type" example:"BLOG" enums:"EVENT,BLOG,EVENT_LEAVE,REPORT_RESOLVED,REPORT_DISMISSED,OTHER"`
	SourceID        *int64 `json:"source_id,omitempty" example:"7"`
	Description     string `json:"description" example:"Published a blog post"`
	NotifyDashboard bool   `json:"notify_dashboard" example:"false"`
}

// CreateTierRequest is the body of POST /badges
type CreateTierRequest struct {
	Name            string `json:"name" example:"Scholar"`
	Description     string `json:"description" example:"Reached 200 points"`
	PointsThreshold int    `json:"points_threshold" example:"200"`
}
