// Package service provides the lead scoring pipeline that implements the
// dependencies required by the HTTP API.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/leadscore/internal/adapters/repository"
	"github.com/okian/leadscore/internal/domain/encoding"
	"github.com/okian/leadscore/internal/domain/lead"
	"github.com/okian/leadscore/internal/domain/scoring"
	"github.com/okian/leadscore/pkg/logger"
	"github.com/okian/leadscore/pkg/metrics"
)

// Sentinel kinds for service construction and scoring errors.
var (
	ErrNoDataset     = errors.New("no reference dataset")
	ErrNoClassifier  = errors.New("no classifier")
	ErrScoreMismatch = errors.New("classifier returned wrong number of scores")
)

// Query is one listing or export request.
type Query struct {
	lead.Criteria
	// Sort defaults to the service's default order when empty.
	Sort lead.SortOrder
}

// Stats summarizes the loaded state.
type Stats struct {
	Rows        int            `json:"rows"`
	Source      string         `json:"source"`
	Vocabulary  map[string]int `json:"vocabulary"`
	CodeTable   string         `json:"codeTable"`
	Trees       int            `json:"trees,omitempty"`
	DefaultSort lead.SortOrder `json:"defaultSort"`
	StartedAt   time.Time      `json:"startedAt"`
}

// Service holds the reference dataset, its code table and the classifier.
// It is built once by New and only read afterwards, so it is safe for
// concurrent use without locking.
type Service struct {
	store       repository.Store
	rows        lead.Unscored
	codes       encoding.CodeTable
	modelCodes  *encoding.CodeTable
	fixedCodes  *encoding.CodeTable
	classifier  scoring.Classifier
	defaultSort lead.SortOrder
	logger      logger.Logger
	startedAt   time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the reference dataset source.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLeads uses rows as the reference dataset.
func WithLeads(rows []lead.Lead) Option {
	return func(s *Service) {
		s.store = repository.NewMemoryStore(rows, repository.WithSource("inline"))
	}
}

// WithClassifier sets the model used to score leads.
func WithClassifier(c scoring.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithModel sets the classifier and remembers the code table it was trained
// with, so New can warn when the reference dataset encodes differently.
func WithModel(m scoring.Model) Option {
	return func(s *Service) {
		if m.Forest != nil {
			s.classifier = m.Forest
			codes := m.Codes
			s.modelCodes = &codes
		}
	}
}

// WithCodeTable makes New encode with codes instead of deriving a table from
// the reference rows. Pass the model's table so codes stay the ones the
// forest was trained on and categories it never saw encode as Unknown.
func WithCodeTable(codes encoding.CodeTable) Option {
	return func(s *Service) {
		s.fixedCodes = &codes
	}
}

// WithDefaultSort sets the order used when a query has none.
func WithDefaultSort(order lead.SortOrder) Option {
	return func(s *Service) {
		if order != "" {
			s.defaultSort = order
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New loads the reference rows and derives the code table unless one was
// given with WithCodeTable.
func New(ctx context.Context, opts ...Option) (*Service, error) {
	s := &Service{defaultSort: lead.SortNone}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		return nil, ErrNoDataset
	}
	if s.classifier == nil {
		return nil, ErrNoClassifier
	}

	rows, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read reference dataset: %w", err)
	}
	s.rows = rows
	if s.fixedCodes != nil {
		s.codes = *s.fixedCodes
	} else {
		_, s.codes = encoding.Derive(rows)
	}
	s.startedAt = time.Now()

	if s.fixedCodes == nil && s.modelCodes != nil && !s.modelCodes.Equal(s.codes) {
		s.logger.Warn(ctx, "reference dataset encodes categories differently than the training data",
			logger.Any("dataset", s.codes.Sizes()),
			logger.Any("model", s.modelCodes.Sizes()),
		)
	}

	metrics.UpdateDatasetRows(len(rows))
	for attr, n := range s.codes.Sizes() {
		metrics.UpdateVocabularySize(string(attr), n)
	}
	s.logger.Info(ctx, "lead service ready",
		logger.Int("rows", len(rows)),
		logger.Any("vocabulary", s.codes.Sizes()),
		logger.String("code_table", s.codeTableSource()),
		logger.String("default_sort", string(s.defaultSort)),
	)
	return s, nil
}

// Codes returns the code table used to encode leads.
func (s *Service) Codes() encoding.CodeTable { return s.codes }

func (s *Service) codeTableSource() string {
	if s.fixedCodes != nil {
		return "fixed"
	}
	return "dataset"
}

// ListLeads runs text filter, encode, score, score filter and sort.
func (s *Service) ListLeads(ctx context.Context, q Query) (lead.Scored, error) {
	candidates := s.rows.Filter(q.Criteria)
	if len(candidates) == 0 {
		return lead.Scored{}, nil
	}

	encoded := encoding.Apply(candidates, s.codes)
	for attr, n := range encoding.UnknownCounts(encoded) {
		metrics.RecordUnknownCategories(string(attr), n)
	}

	start := time.Now()
	probs, err := s.classifier.PredictProba(ctx, encoding.FeatureMatrix(encoded))
	if err != nil {
		metrics.RecordScoringError()
		return nil, fmt.Errorf("score leads: %w", err)
	}
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordLeadsScored(len(probs))

	scored := candidates.Attach(probs)
	if scored == nil {
		metrics.RecordScoringError()
		return nil, fmt.Errorf("%w: %d rows, %d scores", ErrScoreMismatch, len(candidates), len(probs))
	}

	order := q.Sort
	if order == "" {
		order = s.defaultSort
	}
	out := scored.Filter(q.Criteria).SortByScore(order)

	s.logger.Debug(ctx, "leads listed",
		logger.Int("candidates", len(candidates)),
		logger.Int("returned", len(out)),
		logger.String("sort", string(order)),
	)
	return out, nil
}

// ExportLeads runs ListLeads and serializes the result in format f. An empty
// result yields a header-only table.
func (s *Service) ExportLeads(ctx context.Context, q Query, f repository.Format) ([]byte, error) {
	rows, err := s.ListLeads(ctx, q)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := repository.WriteScored(&buf, f, rows); err != nil {
		return nil, fmt.Errorf("export leads: %w", err)
	}
	metrics.RecordExport(string(f), len(rows), buf.Len())
	return buf.Bytes(), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	st := Stats{
		Rows:        s.store.Count(ctx),
		Vocabulary:  make(map[string]int, len(encoding.Attributes)),
		CodeTable:   s.codeTableSource(),
		DefaultSort: s.defaultSort,
		StartedAt:   s.startedAt,
	}
	if src, ok := s.store.(interface{ Source() string }); ok {
		st.Source = src.Source()
	}
	for attr, n := range s.Codes().Sizes() {
		st.Vocabulary[string(attr)] = n
	}
	if f, ok := s.classifier.(interface{ Trees() int }); ok {
		st.Trees = f.Trees()
	}
	return st
}
