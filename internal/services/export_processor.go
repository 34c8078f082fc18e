package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/gsheet"
	"tally/internal/report"
)

// ExportProcessor is the worker side of the export flow: it recompiles the
// deductible ledger for the requested year and pushes it to the sheet.
type ExportProcessor struct {
	compiler *report.Compiler
	writer   gsheet.ExportWriter
}

func NewExportProcessor(compiler *report.Compiler, writer gsheet.ExportWriter) *ExportProcessor {
	return &ExportProcessor{compiler: compiler, writer: writer}
}

// Handle processes one export request. Errors bubble up to the consumer,
// which decides whether to requeue.
func (p *ExportProcessor) Handle(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	rows, err := p.compiler.ExportDeductibleTransactions(ctx, msg.Year)
	if err != nil {
		return fmt.Errorf("compile export for %d: %w", msg.Year, err)
	}

	ref, err := p.writer.WriteExport(ctx, msg.Year, rows)
	if err != nil {
		return fmt.Errorf("write export for %d: %w", msg.Year, err)
	}

	slog.InfoContext(ctx, "Export written",
		"year", msg.Year,
		"rows", len(rows),
		"requested_by", msg.RequestedBy,
		"sheets_ref", ref)
	return nil
}
