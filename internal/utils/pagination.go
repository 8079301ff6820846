// internal/utils/pagination.go
package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams is a 1-based page request.
type PaginationParams struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Sort  string `json:"sort"`
}

// Normalize clamps out of range values to the first page of DefaultPageSize.
func (p PaginationParams) Normalize() PaginationParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > MaxPageSize {
		p.Limit = DefaultPageSize
	}
	return p
}

// Offset is the number of rows to skip for this page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

// Meta is the "pagination" block placed in the response envelope.
func (r PaginationResult) Meta() gin.H {
	return gin.H{
		"page":        r.Page,
		"limit":       r.Limit,
		"total":       r.Total,
		"total_pages": r.TotalPages,
	}
}

// GetPaginationParams reads ?page, ?limit and ?sort. Unparseable numbers fall
// back to the defaults.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return PaginationParams{Page: page, Limit: limit, Sort: c.Query("sort")}.Normalize()
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	totalPages := 0
	if params.Limit > 0 && total > 0 {
		totalPages = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}
	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	h := c.Writer.Header()
	h.Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	h.Set("X-Page", strconv.Itoa(result.Page))
	h.Set("X-Per-Page", strconv.Itoa(result.Limit))
	h.Set("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
