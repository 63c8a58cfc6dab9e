// Package retrieval fetches candidate documents for a screening session
// from external sources, concurrently and under a rate limit.
package retrieval

import (
	"context"
	"strings"

	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/qdrant"
)

// Retriever turns a free-text query into documents. Identifiers must be
// stable across calls.
type Retriever interface {
	Name() string
	FetchDocuments(ctx context.Context, query string) ([]corpus.Document, error)
}

// StaticRetriever answers queries from an in-memory document list. A
// document matches when every query term occurs in its text or headings.
type StaticRetriever struct {
	name  string
	docs  []corpus.Document
	terms []map[string]struct{}
}

// NewStaticRetriever indexes docs for term matching.
func NewStaticRetriever(name string, docs []corpus.Document) *StaticRetriever {
	terms := make([]map[string]struct{}, len(docs))
	for i, d := range docs {
		set := make(map[string]struct{})
		for _, tok := range corpus.Tokenize(d.Text()) {
			set[tok] = struct{}{}
		}
		for _, tag := range d.Tags {
			for _, tok := range corpus.Tokenize(tag) {
				set[tok] = struct{}{}
			}
		}
		terms[i] = set
	}
	return &StaticRetriever{name: name, docs: docs, terms: terms}
}

// NewFileRetriever loads a JSON-lines corpus.
func NewFileRetriever(path string) (*StaticRetriever, error) {
	docs, err := corpus.LoadJSONL(path)
	if err != nil {
		return nil, errors.RetrievalError("loading "+path, err)
	}
	return NewStaticRetriever("file", docs), nil
}

// Name returns the source name.
func (r *StaticRetriever) Name() string { return r.name }

// FetchDocuments returns the matching documents in corpus order. An empty
// query matches everything.
func (r *StaticRetriever) FetchDocuments(ctx context.Context, query string) ([]corpus.Document, error) {
	want := corpus.Tokenize(query)

	var out []corpus.Document
	for i, d := range r.docs {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if containsAll(r.terms[i], want) {
			out = append(out, d)
		}
	}
	return out, nil
}

func containsAll(set map[string]struct{}, terms []string) bool {
	for _, t := range terms {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// QdrantRetriever scrolls a Qdrant document collection, matching the query
// against titles and abstracts.
type QdrantRetriever struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantRetriever creates a retriever over collection.
func NewQdrantRetriever(client *qdrant.Client, collection string) *QdrantRetriever {
	return &QdrantRetriever{client: client, collection: collection}
}

// Name returns "qdrant".
func (r *QdrantRetriever) Name() string { return "qdrant" }

// FetchDocuments scrolls the documents matching query.
func (r *QdrantRetriever) FetchDocuments(ctx context.Context, query string) ([]corpus.Document, error) {
	return r.client.ScrollDocuments(ctx, r.collection, qdrant.DocumentFilter{Text: strings.TrimSpace(query)})
}
