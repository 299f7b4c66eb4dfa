package response

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"unihub/internal/models"
)

// PaginationConfig holds pagination configuration
type PaginationConfig struct {
	DefaultPageSize int    `json:"default_page_size"`
	MaxPageSize     int    `json:"max_page_size"`
	PageParam       string `json:"page_param"`
	SizeParam       string `json:"size_param"`
}

// DefaultPaginationConfig returns default pagination configuration
func DefaultPaginationConfig() *PaginationConfig {
	return &PaginationConfig{
		DefaultPageSize: 20,
		MaxPageSize:     100,
		PageParam:       "page",
		SizeParam:       "page_size",
	}
}

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// PaginationMeta contains pagination information
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// PaginationParser reads page parameters from query strings
type PaginationParser struct {
	config *PaginationConfig
}

// NewPaginationParser creates a parser
func NewPaginationParser(config *PaginationConfig) *PaginationParser {
	if config == nil {
		config = DefaultPaginationConfig()
	}
	return &PaginationParser{config: config}
}

// ParseFromQuery parses pagination parameters from query string
func (p *PaginationParser) ParseFromQuery(query url.Values) (*PaginationParams, error) {
	params := &PaginationParams{Page: 1, PageSize: p.config.DefaultPageSize}

	if pageStr := query.Get(p.config.PageParam); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, fmt.Errorf("invalid page parameter: %s", pageStr)
		}
		if page < 1 {
			return nil, fmt.Errorf("page must be greater than 0")
		}
		params.Page = page
	}

	if sizeStr := query.Get(p.config.SizeParam); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid page_size parameter: %s", sizeStr)
		}
		if size < 1 {
			return nil, fmt.Errorf("page_size must be greater than 0")
		}
		if size > p.config.MaxPageSize {
			return nil, fmt.Errorf("page_size cannot exceed %d", p.config.MaxPageSize)
		}
		params.PageSize = size
	}

	return params, nil
}

// ParseFromRequest parses pagination parameters from an HTTP request
func (p *PaginationParser) ParseFromRequest(r *http.Request) (*PaginationParams, error) {
	return p.ParseFromQuery(r.URL.Query())
}

// WritePaginated writes page.Data with the pagination block in meta
func WritePaginated[T any](b *Builder, w http.ResponseWriter, r *http.Request, page *models.PaginatedResponse[T]) {
	resp := b.Success(r.Context(), page.Data)
	resp.Meta = &ResponseMeta{
		Pagination: &PaginationMeta{
			Page:       page.Pagination.CurrentPage,
			PageSize:   page.Pagination.ItemsPerPage,
			Total:      page.Pagination.TotalItems,
			TotalPages: page.Pagination.TotalPages,
			HasNext:    page.Pagination.HasNext,
			HasPrev:    page.Pagination.HasPrev,
		},
	}
	b.WriteJSON(w, r, resp, http.StatusOK)
}
