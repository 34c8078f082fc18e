// Package services orchestrates writes across storage, the learned-mapping
// cache, and the broker. Handlers call services, never storage directly.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/learned"
	"tally/internal/storage"
)

// MappingCache is the slice of the learned-index cache the service needs:
// dropping the cached index after a mapping write.
type MappingCache interface {
	Invalidate()
}

// LedgerService owns every mutation of the ledger. The AMQP client and the
// mapping cache are both optional; a nil client skips events, a nil cache
// skips invalidation.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	cache      MappingCache
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, cache MappingCache) *LedgerService {
	return &LedgerService{storage: storage, amqpClient: amqpClient, cache: cache}
}

// CategorizeTransaction records a manual decision for one external
// transaction. Manual always wins: an existing decision is overwritten, and
// the counterparty is learned so similar transactions resolve the same way
// next run.
func (s *LedgerService) CategorizeTransaction(ctx context.Context, c core.Categorization) error {
	cat, err := s.storage.GetCategory(ctx, c.CategoryID)
	if err != nil {
		return fmt.Errorf("resolve category: %w", err)
	}
	if !cat.Active {
		return fmt.Errorf("category %q: %w", cat.Name, core.ErrUnknownCategory)
	}

	if err := s.storage.OverrideCategorization(ctx, c); err != nil {
		return fmt.Errorf("record decision: %w", err)
	}

	if key := learned.NormalizeKey(c.CounterpartyName); key != "" {
		mapping := core.LearnedMapping{
			CounterpartyKey: key,
			CategoryID:      c.CategoryID,
			Deductible:      c.Deductible,
			LastUpdated:     time.Now().UTC(),
		}
		if err := s.storage.UpsertLearnedMapping(ctx, mapping); err != nil {
			return fmt.Errorf("learn mapping: %w", err)
		}
		if s.cache != nil {
			s.cache.Invalidate()
		}
	}

	s.publishCategorizationApplied(ctx, c.ExternalID, c.CategoryID)
	return nil
}

// CreateExpense adds a manual ledger row and returns its id.
func (s *LedgerService) CreateExpense(ctx context.Context, e core.ManualExpense) (int64, error) {
	if _, err := s.storage.GetCategory(ctx, e.CategoryID); err != nil {
		return 0, fmt.Errorf("resolve category: %w", err)
	}
	id, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	return id, nil
}

func (s *LedgerService) UpdateExpense(ctx context.Context, e core.ManualExpense) error {
	if _, err := s.storage.GetCategory(ctx, e.CategoryID); err != nil {
		return fmt.Errorf("resolve category: %w", err)
	}
	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.storage.SoftDeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (s *LedgerService) ListExpenses(ctx context.Context, start, end time.Time) ([]core.ManualExpense, error) {
	return s.storage.ListExpensesInRange(ctx, start, end)
}

func (s *LedgerService) ListCategories(ctx context.Context, includeInactive bool) ([]core.Category, error) {
	return s.storage.ListCategories(ctx, includeInactive)
}

func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	return s.storage.CreateCategory(ctx, c)
}

func (s *LedgerService) DisableCategory(ctx context.Context, id int64) error {
	return s.storage.DisableCategory(ctx, id)
}

// RequestExport enqueues a year-end export for the worker. Unlike events,
// the request is the operation itself, so a missing broker is an error.
func (s *LedgerService) RequestExport(ctx context.Context, year int, requestedBy string) error {
	if s.amqpClient == nil {
		return fmt.Errorf("export requires a configured broker")
	}
	if err := s.amqpClient.PublishExportRequest(ctx, year, requestedBy); err != nil {
		return fmt.Errorf("request export: %w", err)
	}
	return nil
}

func (s *LedgerService) publishCategorizationApplied(ctx context.Context, externalID string, categoryID int64) {
	if s.amqpClient == nil {
		return
	}
	// The decision is already durable; a lost event is only lost telemetry.
	if err := s.amqpClient.PublishCategorizationApplied(ctx, externalID, categoryID, "manual"); err != nil {
		slog.ErrorContext(ctx, "Failed to publish categorization event",
			"external_id", externalID, "error", err)
	}
}

// Close closes storage and the AMQP connection.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
