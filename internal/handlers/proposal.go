package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/go-partners/httpx"
	"github.com/diewo77/go-partners/internal/logger"
	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/pdf"
	"github.com/diewo77/go-partners/internal/proposal"
	"github.com/diewo77/go-partners/internal/services"
	"github.com/diewo77/go-partners/internal/storage"
	"go.uber.org/zap"
)

type ProposalHandler struct {
	svc      *proposal.Service
	partners *services.PartnerService
	archive  storage.Archive
	render   func(pdf.ProposalData) ([]byte, error)
}

// NewProposalHandler builds the handler. archive may be nil, in which case
// PDFs are rendered but not kept.
func NewProposalHandler(svc *proposal.Service, partners *services.PartnerService, archive storage.Archive) *ProposalHandler {
	return &ProposalHandler{svc: svc, partners: partners, archive: archive, render: pdf.ProposalPDF}
}

// Create: POST /api/proposals
func (h *ProposalHandler) Create(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	var in proposal.CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	p, err := h.svc.Create(r.Context(), pid, in)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// List: GET /api/proposals?status=&page=&limit=
func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	page := pageFrom(r)
	items, total, err := h.svc.List(r.Context(), pid, r.URL.Query().Get("status"), page)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	list(w, items, total, page)
}

// View: GET /api/proposals/{id}
func (h *ProposalHandler) View(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	p, err := h.svc.Get(r.Context(), pid, id)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Update: PATCH /api/proposals/{id}
func (h *ProposalHandler) Update(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	var patch proposal.Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	p, err := h.svc.Update(r.Context(), pid, id, patch)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Delete: DELETE /api/proposals/{id}
func (h *ProposalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	if err := h.svc.Delete(r.Context(), pid, id); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PDF: GET /api/proposals/{id}/pdf
func (h *ProposalHandler) PDF(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	p, err := h.svc.Get(r.Context(), pid, id)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	partner, err := h.partners.Get(r.Context(), pid)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}

	items := make([]pdf.ProposalItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, pdf.ProposalItem{Description: it.Description, Value: it.Value})
	}
	data, err := h.render(pdf.ProposalData{
		Number:      strconv.Itoa(int(p.ID)),
		Title:       p.Title,
		PartnerName: partner.CompanyName,
		ClientName:  p.ClientName,
		ClientEmail: p.ClientEmail,
		Scope:       p.Scope,
		Status:      string(p.Status),
		Date:        p.CreatedAt.Format("2006-01-02"),
		ValidUntil:  p.ValidUntil.Format("2006-01-02"),
		Items:       items,
		Total:       p.TotalValue,
	})
	if err != nil {
		logger.FromContext(r.Context()).Error("proposal pdf rendering failed",
			zap.Uint("proposal_id", p.ID), zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}
	if h.archive != nil {
		key := storage.ProposalKey(pid, p.ID, string(p.Status))
		if err := h.archive.Put(r.Context(), key, "application/pdf", data); err != nil {
			logger.FromContext(r.Context()).Warn("proposal pdf not archived", zap.String("key", key), zap.Error(err))
		}
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"proposal-"+strconv.Itoa(int(p.ID))+".pdf\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// PublicView: GET /public/proposals/{token}
func (h *ProposalHandler) PublicView(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.PublicView(r.Context(), r.PathValue("token"))
	if err != nil {
		httpx.Error(w, r, err, true)
		return
	}
	httpx.JSON(w, http.StatusOK, p.Public())
}

type statusRequest struct {
	Status models.ProposalStatus `json:"status"`
}

// PublicStatus: PATCH /public/proposals/{token}/status
func (h *ProposalHandler) PublicStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err, true)
		return
	}
	p, err := h.svc.PublicTransition(r.Context(), r.PathValue("token"), req.Status)
	if err != nil {
		httpx.Error(w, r, err, true)
		return
	}
	httpx.JSON(w, http.StatusOK, p.Public())
}
