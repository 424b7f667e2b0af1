package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 100

type pageParams struct {
	Page     int
	PageSize int
}

func (p pageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func parsePageParams(c *gin.Context, defaultSize int) pageParams {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize)))
	if err != nil || size < 1 {
		size = defaultSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return pageParams{Page: page, PageSize: size}
}

// orderClause maps an ordering query value ("-created_at" style) to a SQL
// ORDER BY expression. Unknown fields fall back to the default so clients
// cannot inject arbitrary SQL.
func orderClause(ordering string, allowed map[string]string, fallback string) string {
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")

	column, ok := allowed[field]
	if !ok {
		return fallback
	}
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

type pagedResponse struct {
	Count    int         `json:"count"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Results  interface{} `json:"results"`
}
