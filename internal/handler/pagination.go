package handler

import (
	"math"
	"strconv"

	"pms/internal/repository"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*page_size inside int
	MaxPage = math.MaxInt32
)

// PageResponse оборачивает одну страницу результатов
type PageResponse[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

type pageParams struct {
	Page int
	Size int
}

// parsePage читает page (с 1) и page_size; некорректные значения заменяются умолчаниями
func parsePage(c *gin.Context) pageParams {
	p := pageParams{Page: 1, Size: DefaultPageSize}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = min(v, MaxPage)
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 {
		p.Size = min(v, MaxPageSize)
	}
	return p
}

func (p pageParams) window() repository.Page {
	return repository.Page{Limit: p.Size, Offset: (p.Page - 1) * p.Size}
}

func newPage[T any](p pageParams, total int64, results []T) PageResponse[T] {
	if results == nil {
		results = []T{}
	}
	return PageResponse[T]{Count: total, Page: p.Page, PageSize: p.Size, Results: results}
}
