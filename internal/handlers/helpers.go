package handlers

import (
	"net/http"

	"github.com/diewo77/go-partners/auth"
	"github.com/diewo77/go-partners/httpx"
	"github.com/diewo77/go-partners/internal/store"
)

// partnerID returns the authenticated partner. Routes are wrapped in
// RequirePartner, so a missing ID only happens on wiring mistakes.
func partnerID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := auth.PartnerIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	}
	return id, ok
}

func pageFrom(r *http.Request) store.Page {
	return store.Page{
		Page:  httpx.QueryInt(r, "page", 1),
		Limit: httpx.QueryInt(r, "limit", 0),
	}.Normalized()
}

// ListResponse is the paginated envelope of every list endpoint.
type ListResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func list[T any](w http.ResponseWriter, items []T, total int64, page store.Page) {
	if items == nil {
		items = []T{}
	}
	httpx.JSON(w, http.StatusOK, ListResponse[T]{Data: items, Total: total, Page: page.Page, Limit: page.Limit})
}
