package handlers

import (
	"net/http"

	"github.com/diewo77/go-partners/httpx"
	"github.com/diewo77/go-partners/internal/revenue"
	"github.com/diewo77/go-partners/internal/store"
	"github.com/shopspring/decimal"
)

// DashboardHandler serves the partner's own revenue figures.
type DashboardHandler struct {
	agg   *revenue.Aggregator
	store *store.Store
}

func NewDashboardHandler(agg *revenue.Aggregator, st *store.Store) *DashboardHandler {
	return &DashboardHandler{agg: agg, store: st}
}

type dashboardStats struct {
	ActiveClients  int64           `json:"active_clients"`
	ActiveServices int             `json:"active_services"`
	MRR            decimal.Decimal `json:"mrr"`
	Commission     decimal.Decimal `json:"commission"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

// Stats: GET /api/dashboard
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	rev, err := h.agg.PartnerRevenue(r.Context(), pid)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	active, err := h.store.CountActiveClients(r.Context(), pid)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboardStats{
		ActiveClients:  active,
		ActiveServices: rev.ActiveServices,
		MRR:            rev.MRR,
		Commission:     rev.Commission,
		CommissionRate: rev.CommissionRate,
	})
}

// History: GET /api/dashboard/history
func (h *DashboardHandler) History(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	points, err := h.agg.PartnerHistory(r.Context(), pid)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, points)
}
