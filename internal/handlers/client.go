package handlers

import (
	"net/http"

	"github.com/diewo77/go-partners/httpx"
	"github.com/diewo77/go-partners/internal/services"
)

type ClientHandler struct {
	svc *services.ClientService
}

func NewClientHandler(svc *services.ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

// List: GET /api/clients?q=&status=&page=&limit=
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	page := pageFrom(r)
	q := r.URL.Query()
	items, total, err := h.svc.List(r.Context(), pid, q.Get("q"), q.Get("status"), page)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	list(w, items, total, page)
}

// Create: POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	var in services.ClientInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	c, err := h.svc.Create(r.Context(), pid, in)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

// View: GET /api/clients/{id}
func (h *ClientHandler) View(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	c, err := h.svc.Get(r.Context(), pid, id)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Update: PUT /api/clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	var in services.ClientInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	c, err := h.svc.Update(r.Context(), pid, id, in)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Delete: DELETE /api/clients/{id}
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// AddService: POST /api/clients/{id}/services
func (h *ClientHandler) AddService(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	clientID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	var in services.ServiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	svc, err := h.svc.AddService(r.Context(), pid, clientID, in)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusCreated, svc)
}

// UpdateService: PUT /api/services/{id}
func (h *ClientHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	var in services.ServiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	svc, err := h.svc.UpdateService(r.Context(), pid, id, in)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}

// CancelService: POST /api/services/{id}/cancel
func (h *ClientHandler) CancelService(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	svc, err := h.svc.CancelService(r.Context(), pid, id)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}
