package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/petal-labs/oaikit/core"
)

// Hit is one hybrid search result.
type Hit struct {
	Document
	Score       float64 `json:"score"`
	KeywordRank int     `json:"keyword_rank,omitempty"` // 1-based; 0 when absent from keyword results
	VectorRank  int     `json:"vector_rank,omitempty"`  // 1-based; 0 when absent from vector results
}

// Hybrid answers queries by fusing TF-IDF keyword ranking with embedding
// similarity. It is safe for concurrent use.
type Hybrid struct {
	embedder core.EmbeddingProvider
	model    core.ModelID
	cfg      hybridConfig

	mu      sync.RWMutex
	docs    map[string]Document
	keyword *TFIDFIndex
	vectors *VectorIndex

	queryCache *lru.Cache[string, []float32]
}

type hybridConfig struct {
	batchSize   int
	concurrency int
	cacheSize   int
	depth       int
	rrfK        float64
	dimensions  *int
	logger      *zap.Logger
	store       *Store
}

// HybridOption configures a Hybrid searcher.
type HybridOption func(*hybridConfig)

// WithBatchSize sets how many documents go into one embeddings request. Default 64.
func WithBatchSize(n int) HybridOption {
	return func(c *hybridConfig) { c.batchSize = n }
}

// WithConcurrency bounds concurrent embeddings requests while indexing. Default 4.
func WithConcurrency(n int) HybridOption {
	return func(c *hybridConfig) { c.concurrency = n }
}

// WithQueryCacheSize sets how many query embeddings are cached. Default 256.
func WithQueryCacheSize(n int) HybridOption {
	return func(c *hybridConfig) { c.cacheSize = n }
}

// WithCandidateDepth sets how many results each ranker contributes to
// fusion. Default 50.
func WithCandidateDepth(n int) HybridOption {
	return func(c *hybridConfig) { c.depth = n }
}

// WithRRFK overrides the fusion constant. Default DefaultRRFK.
func WithRRFK(k float64) HybridOption {
	return func(c *hybridConfig) { c.rrfK = k }
}

// WithDimensions requests shortened embeddings from models that support it.
func WithDimensions(n int) HybridOption {
	return func(c *hybridConfig) { c.dimensions = &n }
}

// WithSearchLogger sets the logger for indexing progress.
func WithSearchLogger(l *zap.Logger) HybridOption {
	return func(c *hybridConfig) { c.logger = l }
}

// WithStore persists indexed documents to s and enables Load.
func WithStore(s *Store) HybridOption {
	return func(c *hybridConfig) { c.store = s }
}

// NewHybrid creates a searcher embedding with model through embedder.
func NewHybrid(embedder core.EmbeddingProvider, model core.ModelID, opts ...HybridOption) *Hybrid {
	cfg := hybridConfig{
		batchSize:   64,
		concurrency: 4,
		cacheSize:   256,
		depth:       50,
		rrfK:        DefaultRRFK,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.batchSize <= 0 {
		cfg.batchSize = 64
	}
	if cfg.concurrency <= 0 {
		cfg.concurrency = 1
	}
	if cfg.cacheSize <= 0 {
		cfg.cacheSize = 1
	}
	if cfg.depth <= 0 {
		cfg.depth = 50
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, []float32](cfg.cacheSize)

	return &Hybrid{
		embedder:   embedder,
		model:      model,
		cfg:        cfg,
		docs:       make(map[string]Document),
		keyword:    NewTFIDFIndex(),
		vectors:    NewVectorIndex(),
		queryCache: cache,
	}
}

// Len returns the number of indexed documents.
func (h *Hybrid) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.docs)
}

// Index embeds docs and adds them to the index, replacing documents with the
// same ID. Documents need a non-empty ID and text. Nothing is added if any
// batch fails.
func (h *Hybrid) Index(ctx context.Context, docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document %d: empty ID: %w", i, core.ErrBadRequest)
		}
		if d.Text == "" {
			return fmt.Errorf("document %q: empty text: %w", d.ID, core.ErrBadRequest)
		}
		if seen[d.ID] {
			return fmt.Errorf("document %q: duplicate ID: %w", d.ID, core.ErrBadRequest)
		}
		seen[d.ID] = true
	}

	vectors := make([][]float32, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.concurrency)
	for start := 0; start < len(docs); start += h.cfg.batchSize {
		end := min(start+h.cfg.batchSize, len(docs))
		g.Go(func() error {
			return h.embedBatch(gctx, docs[start:end], vectors[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := checkDims(h.vectors.Dim(), docs, vectors); err != nil {
		return err
	}
	if h.cfg.store != nil {
		stored := make([]StoredDocument, len(docs))
		for i, d := range docs {
			stored[i] = StoredDocument{Document: d, Model: string(h.model), Vector: vectors[i]}
		}
		if err := h.cfg.store.Put(ctx, stored); err != nil {
			return err
		}
	}
	for i, d := range docs {
		addDocument(h.docs, h.keyword, h.vectors, d, vectors[i])
	}
	h.cfg.logger.Debug("indexed documents", zap.Int("count", len(docs)), zap.Int("total", len(h.docs)))
	return nil
}

// checkDims verifies every vector is non-empty and has dimension dim, or a
// common dimension when dim is 0.
func checkDims(dim int, docs []Document, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("vector %q: empty: %w", docs[i].ID, core.ErrDecode)
		}
		if dim == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return fmt.Errorf("vector %q: %w: got %d, want %d", docs[i].ID, ErrDimensionMismatch, len(v), dim)
		}
	}
	return nil
}

// embedBatch embeds docs into out, matching vectors to documents by ID.
func (h *Hybrid) embedBatch(ctx context.Context, docs []Document, out [][]float32) error {
	inputs := make([]core.EmbeddingInput, len(docs))
	for i, d := range docs {
		inputs[i] = core.EmbeddingInput{Text: d.Text, ID: d.ID}
	}
	resp, err := h.embedder.CreateEmbeddings(ctx, &core.EmbeddingRequest{
		Model:      h.model,
		Input:      inputs,
		Dimensions: h.cfg.dimensions,
	})
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}

	byID := make(map[string]int, len(docs))
	for i, d := range docs {
		byID[d.ID] = i
	}
	filled := 0
	for _, v := range resp.Vectors {
		i, ok := byID[v.ID]
		if !ok || out[i] != nil {
			continue
		}
		vec, err := v.Floats()
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		out[i] = vec
		filled++
	}
	if filled != len(docs) {
		return fmt.Errorf("embed batch: got %d vectors for %d documents: %w", filled, len(docs), core.ErrDecode)
	}
	return nil
}

// addDocument adds d to the indexes. Vectors must already match the
// index dimension.
func addDocument(docs map[string]Document, keyword *TFIDFIndex, vectors *VectorIndex, d Document, vec []float32) {
	// Add only fails on a dimension mismatch, ruled out by checkDims.
	_ = vectors.Add(d.ID, vec)
	keyword.Add(d.ID, d.Text)
	docs[d.ID] = d
}

// Remove drops documents from the index and the store.
func (h *Hybrid) Remove(ctx context.Context, ids ...string) error {
	if h.cfg.store != nil {
		if _, err := h.cfg.store.Delete(ctx, ids...); err != nil {
			return err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		h.vectors.Remove(id)
		h.keyword.Remove(id)
		delete(h.docs, id)
	}
	return nil
}

// ErrNoStore is returned by Load when the searcher has no store.
var ErrNoStore = errors.New("search: no store configured")

// Load replaces the in-memory index with every document stored for the
// searcher's model, without calling the embedder. It returns the number
// loaded. On error the index is left unchanged.
func (h *Hybrid) Load(ctx context.Context) (int, error) {
	if h.cfg.store == nil {
		return 0, ErrNoStore
	}
	stored, err := h.cfg.store.All(ctx, string(h.model))
	if err != nil {
		return 0, err
	}

	docs := make([]Document, len(stored))
	vecs := make([][]float32, len(stored))
	for i, d := range stored {
		docs[i], vecs[i] = d.Document, d.Vector
	}
	if err := checkDims(0, docs, vecs); err != nil {
		return 0, fmt.Errorf("load: %w", err)
	}

	byID := make(map[string]Document, len(stored))
	keyword := NewTFIDFIndex()
	vectors := NewVectorIndex()
	for i, d := range docs {
		addDocument(byID, keyword, vectors, d, vecs[i])
	}

	h.mu.Lock()
	h.docs, h.keyword, h.vectors = byID, keyword, vectors
	h.mu.Unlock()
	return len(stored), nil
}

// indexes returns the current keyword and vector indexes. Load swaps them,
// so readers take them under the lock.
func (h *Hybrid) indexes() (*TFIDFIndex, *VectorIndex) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.keyword, h.vectors
}

// Query returns up to k documents ranked by fusing keyword and vector
// results with Reciprocal Rank Fusion.
func (h *Hybrid) Query(ctx context.Context, query string, k int) ([]Hit, error) {
	if query == "" {
		return nil, fmt.Errorf("search: empty query: %w", core.ErrBadRequest)
	}
	if k <= 0 {
		k = 10
	}
	if h.Len() == 0 {
		return nil, nil
	}

	qvec, err := h.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	depth := max(k, h.cfg.depth)
	kwIndex, vecIndex := h.indexes()
	keyword := kwIndex.Search(query, depth)
	vector, err := vecIndex.Search(qvec, depth)
	if err != nil {
		return nil, err
	}

	fused := ReciprocalRankFusion(h.cfg.rrfK, keyword, vector)
	if len(fused) > k {
		fused = fused[:k]
	}

	kwRank := ranks(keyword)
	vecRank := ranks(vector)

	h.mu.RLock()
	defer h.mu.RUnlock()
	hits := make([]Hit, 0, len(fused))
	for _, r := range fused {
		doc, ok := h.docs[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			Document:    doc,
			Score:       r.Score,
			KeywordRank: kwRank[r.ID],
			VectorRank:  vecRank[r.ID],
		})
	}
	return hits, nil
}

// QueryVector returns the k nearest documents to query by embedding alone.
func (h *Hybrid) QueryVector(ctx context.Context, query string, k int) ([]Result, error) {
	qvec, err := h.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	_, vectors := h.indexes()
	return vectors.Search(qvec, k)
}

// QueryKeyword returns the k best keyword matches for query.
func (h *Hybrid) QueryKeyword(query string, k int) []Result {
	keyword, _ := h.indexes()
	return keyword.Search(query, k)
}

func (h *Hybrid) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if v, ok := h.queryCache.Get(query); ok {
		return v, nil
	}
	resp, err := h.embedder.CreateEmbeddings(ctx, &core.EmbeddingRequest{
		Model:      h.model,
		Input:      core.Texts(query),
		Dimensions: h.cfg.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Vectors) == 0 {
		return nil, fmt.Errorf("embed query: no vectors: %w", core.ErrDecode)
	}
	vec, err := resp.Vectors[0].Floats()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	h.queryCache.Add(query, vec)
	return vec, nil
}

func ranks(rs []Result) map[string]int {
	m := make(map[string]int, len(rs))
	for i, r := range rs {
		m[r.ID] = i + 1
	}
	return m
}
