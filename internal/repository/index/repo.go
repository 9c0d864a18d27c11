// Package index persists assessment vectors and metadata in the search index.
package index

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hiringlab/assessrec/internal/db"
	"github.com/hiringlab/assessrec/internal/domain"
)

const (
	hashPrefix = domain.KeyPrefix + "assessments:"
	indexName  = hashPrefix + "idx"

	fieldVector      = "__vector"
	fieldTitle       = "title"
	fieldURL         = "url"
	fieldDuration    = "duration_minutes"
	fieldTags        = "tags"
	fieldDescription = "description"

	tagSeparator = ","
)

// store is the consumer interface for index operations (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Hit is one retrieval result with its resolved assessment.
type Hit struct {
	Assessment domain.Assessment
	Score      float64
}

// Repo implements the vector index repository over the db store.
type Repo struct {
	store      store
	dimensions int
	logger     *zap.Logger
}

// New creates an index repository. dimensions fixes the vector width of the index.
func New(s store, dimensions int, logger *zap.Logger) *Repo {
	return &Repo{store: s, dimensions: dimensions, logger: logger}
}

// EnsureIndex creates the assessment index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check index: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(indexName).
		Prefix(hashPrefix).
		Tag(fieldTags, tagSeparator).
		Numeric(fieldDuration).
		VectorFlat(fieldVector, r.dimensions, db.DistanceCosine, 0).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %v: %w", err, domain.ErrUpstreamUnavailable)
	}

	r.logger.Info("Created assessment index",
		zap.String("index", indexName),
		zap.Int("dimensions", r.dimensions),
	)
	return nil
}

// UpsertBatch writes assessments and their vectors in one pipelined call.
// Vectors are matched to assessments by position.
func (r *Repo) UpsertBatch(ctx context.Context, assessments []domain.Assessment, vectors [][]float32) error {
	if len(assessments) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d assessments", len(vectors), len(assessments))
	}
	if len(assessments) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(assessments))
	for i, a := range assessments {
		items[i] = db.HashSetItem{
			Key:    hashPrefix + a.ID,
			Fields: toHashFields(a, vectors[i]),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert batch: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	return nil
}

// Search runs a KNN query and resolves hits to assessments from the hash metadata.
// Entries with missing or empty title/url metadata are stale and dropped with a warning.
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	q := &db.KNNQuery{
		IndexName: indexName,
		Vector:    vector,
		K:         k,
		ReturnFields: []string{
			fieldTitle, fieldURL, fieldDuration, fieldTags, fieldDescription,
		},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		a, ok := fromHashFields(strings.TrimPrefix(entry.Key, hashPrefix), entry.Fields)
		if !ok {
			r.logger.Warn("Dropping stale index entry without metadata", zap.String("key", entry.Key))
			continue
		}
		hits = append(hits, Hit{Assessment: a, Score: entry.Score})
	}

	// Callers assign ranks by position, so scores must be non-increasing
	// even if the server returns entries out of order.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

// Count returns the number of indexed assessments.
func (r *Repo) Count(ctx context.Context) (int64, error) {
	n, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count indexed: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	return int64(n), nil
}

func toHashFields(a domain.Assessment, vector []float32) map[string]string {
	fields := map[string]string{
		fieldVector:   vectorToBytes(vector),
		fieldTitle:    a.Title,
		fieldURL:      a.URL,
		fieldDuration: strconv.Itoa(a.DurationMinutes),
	}
	if len(a.Tags) > 0 {
		fields[fieldTags] = strings.Join(a.Tags, tagSeparator)
	}
	if a.Description != "" {
		fields[fieldDescription] = a.Description
	}
	return fields
}

func fromHashFields(id string, fields map[string]string) (domain.Assessment, bool) {
	title := fields[fieldTitle]
	url := fields[fieldURL]
	if title == "" || url == "" {
		return domain.Assessment{}, false
	}

	duration := domain.DurationUnknown
	if raw, ok := fields[fieldDuration]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			duration = n
		}
	}

	var tags []string
	if raw := fields[fieldTags]; raw != "" {
		tags = strings.Split(raw, tagSeparator)
	}

	return domain.Assessment{
		ID:              id,
		Title:           title,
		URL:             url,
		DurationMinutes: duration,
		Tags:            tags,
		Description:     fields[fieldDescription],
	}, true
}

// vectorToBytes converts float32 vector into little-endian binary for the hash field.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
