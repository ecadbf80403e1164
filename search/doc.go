// Package search provides small retrieval building blocks for
// embedding-backed applications: a Unicode-aware tokenizer, a TF-IDF keyword
// index, a brute-force cosine vector index, Reciprocal Rank Fusion, and a
// Hybrid searcher that combines them over a core.EmbeddingProvider.
//
// Indexes are in memory. Store persists documents and their vectors in
// SQLite so a Hybrid searcher can be reloaded between runs:
//
//	store, err := search.OpenStore("index.db")
//	h := search.NewHybrid(provider, openai.ModelTextEmbedding3Small, search.WithStore(store))
//	if err := h.Load(ctx); err != nil { ... }
//	if err := h.Index(ctx, docs...); err != nil { ... }
//	hits, err := h.Query(ctx, "cheap flights to lisbon", 5)
package search
