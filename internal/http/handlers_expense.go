package http

import (
	"context"
	"errors"
	"net/http"

	"pocketbook/internal/core"
	"pocketbook/internal/ledger"
	applog "pocketbook/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	records := s.expenses.ByCategory(r.URL.Query().Get("category"))
	NewJSONResponse().JSON(newListResponse(records)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	s.createRecord(w, r, s.expenses)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	s.updateRecord(w, r, s.expenses)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, s.expenses)
}

func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	ref, err := parseMonthRef(r, s.today())
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	summary := s.expenses.MonthlySummary(ref)
	NewJSONResponse().JSON(monthlyResponse{
		MonthlySummary: summary,
		Categories:     summary.Categories(),
	}).Write(w)
}

func (s *Server) handleExpenseTotal(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(totalResponse{
		Total: s.expenses.Total(),
		Count: s.expenses.Len(),
	}).Write(w)
}

// createRecord is shared by both ledgers.
func (s *Server) createRecord(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	req, err := decodeRecordRequest(w, r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}

	rec, err := l.Insert(mutationContext(r), req.Draft(s.today()))
	if err != nil {
		s.logMutationError(r, l, applog.OpCreate, "", err)
		ErrorFor(err).Write(w)
		return
	}

	s.structured.LogRecordChanged(r.Context(), applog.OpCreate, string(l.Kind()), rec.ID, rec.Title, rec.Amount.Cents, rec.Category)
	NewJSONResponse().Status(http.StatusCreated).JSON(rec).Write(w)
}

// updateRecord answers 404 for unknown ids; the ledger itself ignores them.
func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	id := r.PathValue("id")
	if _, ok := l.Get(id); !ok {
		NotFoundError("record not found").Write(w)
		return
	}

	req, err := decodeRecordRequest(w, r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	patch := req.Patch()
	if patch.IsEmpty() {
		BadRequestError("no fields to update").Write(w)
		return
	}

	if err := l.Update(mutationContext(r), id, patch); err != nil {
		s.logMutationError(r, l, applog.OpUpdate, id, err)
		ErrorFor(err).Write(w)
		return
	}

	rec, ok := l.Get(id)
	if !ok {
		// deleted concurrently
		NotFoundError("record not found").Write(w)
		return
	}
	s.structured.LogRecordChanged(r.Context(), applog.OpUpdate, string(l.Kind()), rec.ID, rec.Title, rec.Amount.Cents, rec.Category)
	NewJSONResponse().JSON(rec).Write(w)
}

// deleteRecord is idempotent: unknown ids answer 204 as well.
func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	id := r.PathValue("id")
	if err := l.Delete(mutationContext(r), id); err != nil {
		s.logMutationError(r, l, applog.OpDelete, id, err)
		ErrorFor(err).Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Record delete handled",
		applog.FieldLedger, string(l.Kind()),
		applog.FieldRecordID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logMutationError(r *http.Request, l *ledger.Ledger, op, id string, err error) {
	fields := applog.NewFields()
	fields[applog.FieldLedger] = string(l.Kind())
	if id != "" {
		fields[applog.FieldRecordID] = id
	}
	if isValidation(err) {
		s.logger.WarnContext(r.Context(), "Rejected invalid record", append(fields.ToSlice(), applog.FieldError, err.Error())...)
		return
	}
	s.structured.LogError(r.Context(), "Ledger mutation failed", err, applog.ComponentHTTP, op, fields)
}

// mutationContext keeps request values but lets a save finish after the
// client disconnects.
func mutationContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func isValidation(err error) bool {
	return errors.Is(err, core.ErrValidation)
}
