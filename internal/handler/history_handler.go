package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dandantas/linkpatrol/internal/database"
	"github.com/dandantas/linkpatrol/internal/model"
)

// CheckStore reads run history
type CheckStore interface {
	List(ctx context.Context, status string, page, limit int) ([]model.ScheduledCheckRecord, int64, error)
	GetByID(ctx context.Context, id string) (*model.ScheduledCheckRecord, error)
}

// HistoryHandler handles run history queries
type HistoryHandler struct {
	store CheckStore
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store CheckStore) *HistoryHandler {
	return &HistoryHandler{
		store: store,
	}
}

// CheckListResponse represents check list response
type CheckListResponse struct {
	Total   int64                `json:"total"`
	Page    int                  `json:"page"`
	Limit   int                  `json:"limit"`
	Results []model.CheckSummary `json:"results"`
}

// List handles GET /api/v1/checks
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && status != string(model.CheckStatusCompleted) && status != string(model.CheckStatusFailed) {
		writeError(w, http.StatusBadRequest, "status must be 'completed' or 'failed'")
		return
	}

	page := parseQueryInt(r, "page", 1)
	limit := parseQueryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	records, total, err := h.store.List(r.Context(), status, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summaries := make([]model.CheckSummary, 0, len(records))
	for i := range records {
		summaries = append(summaries, records[i].ToSummary())
	}

	writeJSON(w, http.StatusOK, CheckListResponse{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Results: summaries,
	})
}

// Get handles GET /api/v1/checks/{id}
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/checks/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Endpoint not found")
		return
	}

	record, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrCheckNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, record)
}
