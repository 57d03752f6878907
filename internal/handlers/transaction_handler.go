package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/repository"
	"github.com/kudosworks/backend/internal/tenancy"
)

// TransactionLister serves the audit history listing.
type TransactionLister interface {
	List(ctx context.Context, scope tenancy.Scope, f repository.TransactionFilter) ([]*models.Transaction, error)
}

type TransactionHandler struct {
	Repo   TransactionLister
	Logger *slog.Logger
}

// List handles GET /api/v1/transactions. Filters come in as query
// parameters: type, sender_id, receiver_id, from, to (RFC 3339), limit.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := repository.TransactionFilter{
		Type:  q.Get("type"),
		Limit: uint64(queryInt(r, "limit", 50)),
	}
	if f.Limit > 200 {
		f.Limit = 200
	}

	if raw := q.Get("sender_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid sender_id")
			return
		}
		f.SenderID = &id
	}
	if raw := q.Get("receiver_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid receiver_id")
			return
		}
		f.ReceiverID = &id
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		f.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		f.To = t
	}

	list, err := h.Repo.List(r.Context(), tenancy.FromContext(r.Context()), f)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}
