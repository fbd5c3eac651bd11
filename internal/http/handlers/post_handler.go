// Post HTTP handlers.
//
// This file exposes the raw-data endpoint behind the dashboard's table view:
//   - GET /posts  (paginated stored posts for a query, newest first)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-sky-sentiment/internal/domain"
	"github.com/tbourn/go-sky-sentiment/internal/repo"
	"github.com/tbourn/go-sky-sentiment/internal/utils"
)

// Pagination carries page metadata alongside list responses.
type Pagination struct {
	Page       int   `json:"page" example:"1"`
	PageSize   int   `json:"page_size" example:"20"`
	Total      int64 `json:"total" example:"135"`
	TotalPages int   `json:"total_pages" example:"7"`
	HasNext    bool  `json:"has_next" example:"true"`
}

// ListPostsResponse contains a page of posts and pagination metadata.
type ListPostsResponse struct {
	Posts      []domain.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

// clampPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// ListPosts godoc
// @ID          listPosts
// @Summary     List stored posts
// @Description Returns a page of stored posts for the query, newest first.
// @Tags        Posts
// @Produce     json
//
// @Param       q          query  string  false "Query term (defaults to the configured term)"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListPostsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /posts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	ctx := c.Request.Context()
	query := h.queryTerm(c)

	if h.setETag(c, "posts", query) {
		return
	}

	page, pageSize := clampPagination(c)
	offset := (page - 1) * pageSize

	total, err := repo.CountPosts(ctx, h.db, query, nil, nil)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	items := []domain.Post{}
	if total > 0 {
		items, err = repo.ListPostsPage(ctx, h.db, query, offset, pageSize)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
			return
		}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListPostsResponse{
		Posts: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
