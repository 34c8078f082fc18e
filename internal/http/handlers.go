package http

import (
	"net/http"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/feed"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	categories, err := s.svc.ListCategories(r.Context(), includeInactive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type categoryRequest struct {
	Name         string `json:"name"`
	IRSReference string `json:"irs_reference"`
	SortOrder    int64  `json:"sort_order"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.svc.CreateCategory(r.Context(), core.Category{
		Name:         req.Name,
		IRSReference: req.IRSReference,
		SortOrder:    req.SortOrder,
		Active:       true,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDisableCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.svc.DisableCategory(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	start, end := core.YearRange(parseYear(r))
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(w, err)
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(w, err)
			return
		}
		end = t
	}

	expenses, err := s.svc.ListExpenses(r.Context(), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

type expenseRequest struct {
	CategoryID  int64  `json:"category_id"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Vendor      string `json:"vendor"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Deductible  bool   `json:"deductible"`
	ReceiptURL  string `json:"receipt_url"`
	CreatedBy   string `json:"created_by"`
}

func (r expenseRequest) toDomain() (core.ManualExpense, error) {
	cents := r.AmountCents
	if cents == 0 && strings.TrimSpace(r.Amount) != "" {
		parsed, err := core.ParseDecimalToCents(r.Amount)
		if err != nil {
			return core.ManualExpense{}, err
		}
		cents = parsed
	}

	date, err := parseDate(r.Date)
	if err != nil {
		return core.ManualExpense{}, err
	}

	entryType := core.EntryType(r.Type)
	if r.Type == "" {
		entryType = core.EntryExpense
	}

	return core.ManualExpense{
		CategoryID:  r.CategoryID,
		AmountCents: cents,
		Vendor:      r.Vendor,
		Description: r.Description,
		Date:        date,
		Type:        entryType,
		Deductible:  r.Deductible,
		ReceiptURL:  r.ReceiptURL,
		CreatedBy:   r.CreatedBy,
	}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	expense, err := req.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := s.svc.CreateExpense(r.Context(), expense)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	expense, err := req.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}
	expense.ID = id

	if err := s.svc.UpdateExpense(r.Context(), expense); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.svc.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type autoCategorizeRequest struct {
	AccountID string `json:"account_id"`
	Year      int    `json:"year"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Apply     bool   `json:"apply"`
}

func (s *Server) handleAutoCategorize(w http.ResponseWriter, r *http.Request) {
	var req autoCategorizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	year := req.Year
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	start, end := core.YearRange(year)
	if req.Start != "" && req.End != "" {
		var err error
		if start, err = parseDate(req.Start); err != nil {
			writeError(w, err)
			return
		}
		if end, err = parseDate(req.End); err != nil {
			writeError(w, err)
			return
		}
	}

	result, err := s.engine.AutoCategorize(r.Context(), req.AccountID, feed.DateRange{Start: start, End: end}, req.Apply)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type categorizeRequest struct {
	ExternalID       string `json:"external_id"`
	CategoryID       int64  `json:"category_id"`
	Deductible       bool   `json:"deductible"`
	CounterpartyName string `json:"counterparty_name"`
	Notes            string `json:"notes"`
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err := s.svc.CategorizeTransaction(r.Context(), core.Categorization{
		ExternalID:       req.ExternalID,
		CategoryID:       req.CategoryID,
		Deductible:       req.Deductible,
		CounterpartyName: req.CounterpartyName,
		Notes:            req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePnL(w http.ResponseWriter, r *http.Request) {
	pnl, err := s.compiler.CompilePnL(r.Context(), parseYear(r), parseOptionalInt(r, "comparison_year"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pnl)
}

func (s *Server) handleTaxSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.compiler.CompileTaxSummary(r.Context(), parseYear(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.compiler.ExportDeductibleTransactions(r.Context(), parseYear(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type exportRequest struct {
	Year        int    `json:"year"`
	RequestedBy string `json:"requested_by"`
}

func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Year == 0 {
		req.Year = time.Now().UTC().Year()
	}

	if err := s.svc.RequestExport(r.Context(), req.Year, req.RequestedBy); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"year": req.Year, "status": "queued"})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.compiler.CompileOverview(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
