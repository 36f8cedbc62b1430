package handlers

import (
	"net/http"

	"github.com/diewo77/go-partners/httpx"
	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/platform"
	"github.com/diewo77/go-partners/internal/revenue"
	"github.com/diewo77/go-partners/internal/services"
)

// AdminHandler serves the platform operator endpoints.
type AdminHandler struct {
	composer *platform.Composer
	agg      *revenue.Aggregator
	partners *services.PartnerService
}

func NewAdminHandler(composer *platform.Composer, agg *revenue.Aggregator, partners *services.PartnerService) *AdminHandler {
	return &AdminHandler{composer: composer, agg: agg, partners: partners}
}

// Overview: GET /admin/overview
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.composer.Overview(r.Context())
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, ov)
}

// Stats: GET /admin/partners/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.partners.Stats(r.Context())
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

// ListPartners: GET /admin/partners?status=&q=&page=&limit=
func (h *AdminHandler) ListPartners(w http.ResponseWriter, r *http.Request) {
	page := pageFrom(r)
	q := r.URL.Query()
	items, total, err := h.partners.List(r.Context(), q.Get("status"), q.Get("q"), page)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	list(w, items, total, page)
}

// CreatePartner: POST /admin/partners
func (h *AdminHandler) CreatePartner(w http.ResponseWriter, r *http.Request) {
	var in services.PartnerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	p, err := h.partners.Create(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

type partnerDetail struct {
	*models.Partner
	Revenue revenue.Revenue        `json:"revenue"`
	History []revenue.HistoryPoint `json:"history"`
}

// ViewPartner: GET /admin/partners/{id}. Includes the partner's revenue
// snapshot.
func (h *AdminHandler) ViewPartner(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	snap, err := h.agg.Snapshot(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, partnerDetail{Partner: snap.Partner, Revenue: snap.Revenue, History: snap.History})
}

// UpdatePartner: PATCH /admin/partners/{id}
func (h *AdminHandler) UpdatePartner(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	var patch services.PartnerPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	p, err := h.partners.Update(r.Context(), id, patch)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
