// Package http exposes the JSON API: categories, manual ledger rows,
// categorization, and the compiled reports.
package http

import (
	"net/http"

	"tally/internal/categorize"
	"tally/internal/report"
	"tally/internal/services"
)

type Server struct {
	http.Server
	svc      *services.LedgerService
	engine   *categorize.Engine
	compiler *report.Compiler
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, svc *services.LedgerService, engine *categorize.Engine, compiler *report.Compiler) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:      svc,
		engine:   engine,
		compiler: compiler,
	}

	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/categories", s.withLogging(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withLogging(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withLogging(s.handleDisableCategory))

	mux.HandleFunc("GET /api/expenses", s.withLogging(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withLogging(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withLogging(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withLogging(s.handleDeleteExpense))

	mux.HandleFunc("POST /api/categorize/auto", s.withLogging(s.handleAutoCategorize))
	mux.HandleFunc("POST /api/categorize", s.withLogging(s.handleCategorize))

	mux.HandleFunc("GET /api/pnl", s.withLogging(s.handlePnL))
	mux.HandleFunc("GET /api/tax-summary", s.withLogging(s.handleTaxSummary))
	mux.HandleFunc("GET /api/export", s.withLogging(s.handleExport))
	mux.HandleFunc("POST /api/export", s.withLogging(s.handleRequestExport))
	mux.HandleFunc("GET /api/overview", s.withLogging(s.handleOverview))

	return s
}
