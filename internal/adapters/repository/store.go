package repository

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/okian/leadscore/internal/domain/lead"
	"github.com/okian/leadscore/pkg/logger"
)

// ErrEmptyDataset is returned by LoadFile when the file has a header but no
// lead rows.
var ErrEmptyDataset = errors.New("dataset has no rows")

// Store provides read access to the reference leads.
type Store interface {
	// All returns a copy of every lead in file order.
	All(ctx context.Context) (lead.Unscored, error)

	// Count returns the number of leads held.
	Count(ctx context.Context) int
}

// MemoryStore keeps the reference dataset in memory. It is never mutated
// after construction and is safe for concurrent use.
type MemoryStore struct {
	rows   lead.Unscored
	source string
	logger logger.Logger
}

// NewMemoryStore wraps rows. The slice is copied.
func NewMemoryStore(rows []lead.Lead, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		rows:   append(lead.Unscored(nil), rows...),
		source: "memory",
		logger: logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadFile reads a CSV or XLSX dataset, picking the format from the file
// extension.
func LoadFile(ctx context.Context, path string, opts ...Option) (*MemoryStore, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("load %s: %w", path, ErrEmptyDataset)
	}

	s := NewMemoryStore(rows, append([]Option{WithSource(path)}, opts...)...)
	s.logger.Info(ctx, "dataset loaded",
		logger.String("path", path),
		logger.String("format", string(format)),
		logger.Int("rows", len(rows)),
	)
	return s, nil
}

// All returns a copy of the stored leads.
func (s *MemoryStore) All(ctx context.Context) (lead.Unscored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append(lead.Unscored(nil), s.rows...), nil
}

// Count returns the number of stored leads.
func (s *MemoryStore) Count(_ context.Context) int { return len(s.rows) }

// Source reports where the rows came from.
func (s *MemoryStore) Source() string { return s.source }
