package http

import (
	"net/http"

	"pocketbook/internal/core"
	applog "pocketbook/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := core.ParseKind(q.Get("type"))
	if err != nil {
		BadRequestError("type must be income, expense or all").Write(w)
		return
	}
	records := filterCategory(s.transactions.ByType(kind), q.Get("category"))
	NewJSONResponse().JSON(newListResponse(records)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	s.createRecord(w, r, s.transactions)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	s.updateRecord(w, r, s.transactions)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, s.transactions)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	n := s.transactions.Len()
	if err := s.transactions.Clear(mutationContext(r)); err != nil {
		s.logMutationError(r, s.transactions, applog.OpClear, "", err)
		ErrorFor(err).Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Transactions cleared", applog.FieldCount, n)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(s.transactions.TransactionSummary()).Write(w)
}

// handleTransactionMonthly returns the month's records with their balance.
func (s *Server) handleTransactionMonthly(w http.ResponseWriter, r *http.Request) {
	ref, err := parseMonthRef(r, s.today())
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	records := s.transactions.InMonth(ref)
	NewJSONResponse().JSON(transactionMonthResponse{
		Year:               ref.Year,
		Month:              int(ref.Month),
		TransactionSummary: core.TransactionSummaryOf(records),
		Records:            core.SortByDateDesc(records),
	}).Write(w)
}

type transactionMonthResponse struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	core.TransactionSummary
	Records []core.Record `json:"records"`
}
