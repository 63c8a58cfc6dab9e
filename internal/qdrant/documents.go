package qdrant

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/screenlab/screensim/internal/corpus"
)

// Payload field names.
const (
	FieldDocID     = "doc_id"
	FieldTitle     = "title"
	FieldAbstract  = "abstract"
	FieldTags      = "mesh"
	FieldRelevance = "relevance"
)

// pointNamespace derives stable point UUIDs from document identifiers.
var pointNamespace = uuid.MustParse("6f1d8f0e-4d3a-5c1b-9a57-2e8c0b7f4a21")

// PointID returns the Qdrant point UUID of a document identifier.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

// DocumentFilter narrows a scroll. Text matches title or abstract; every
// tag in Tags must be present. Zero value matches every document.
type DocumentFilter struct {
	Text string
	Tags []string
}

func (f DocumentFilter) build() *qdrant.Filter {
	var must, should []*qdrant.Condition

	for _, tag := range f.Tags {
		must = append(must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: FieldTags,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{
							Keyword: corpus.NormalizeTag(tag),
						},
					},
				},
			},
		})
	}

	if f.Text != "" {
		for _, field := range []string{FieldTitle, FieldAbstract} {
			should = append(should, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: field,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Text{
								Text: f.Text,
							},
						},
					},
				},
			})
		}
	}

	if len(must) == 0 && len(should) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must, Should: should}
}

// UpsertDocuments stores docs in batches of the configured page size.
func (c *Client) UpsertDocuments(ctx context.Context, collection string, docs []corpus.Document) error {
	batchSize := c.config.PageSize
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))
		if err := c.upsertBatch(ctx, collection, docs[i:end]); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (c *Client) upsertBatch(ctx context.Context, collection string, docs []corpus.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ctx, release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, d := range docs {
		points = append(points, documentToPoint(d))
	}

	_, err = c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return mapError("upsert documents", err)
	}
	return nil
}

// ScrollDocuments returns every document matching filter, paging through
// the collection. Ground-truth grades come from the relevance payload.
func (c *Client) ScrollDocuments(ctx context.Context, collection string, filter DocumentFilter) ([]corpus.Document, error) {
	ctx, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	pageSize := c.config.PageSize
	qf := filter.build()

	var docs []corpus.Document
	var offset *qdrant.PointId
	for {
		resp, err := c.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Filter:         qf,
			Limit:          qdrant.PtrOf(uint32(pageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
			Offset:         offset,
		})
		if err != nil {
			return nil, mapError("scroll documents", err)
		}

		for _, p := range resp.GetResult() {
			if d, ok := pointToDocument(p.GetPayload()); ok {
				docs = append(docs, d)
			}
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	return docs, nil
}

func documentToPoint(d corpus.Document) *qdrant.PointStruct {
	tags := make([]any, 0, len(d.Tags))
	for _, t := range d.Tags {
		tags = append(tags, corpus.NormalizeTag(t))
	}

	indices, values := termVector(d.Text())

	return &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(PointID(d.ID)),
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vectors{
				Vectors: &qdrant.NamedVectors{
					Vectors: map[string]*qdrant.Vector{
						TermsVector: {
							Data:    values,
							Indices: &qdrant.SparseIndices{Data: indices},
						},
					},
				},
			},
		},
		Payload: qdrant.NewValueMap(map[string]any{
			FieldDocID:     d.ID,
			FieldTitle:     d.Title,
			FieldAbstract:  d.Abstract,
			FieldTags:      tags,
			FieldRelevance: int64(d.Grade),
		}),
	}
}

// pointToDocument rebuilds a document from its payload. Points without a
// document identifier are skipped.
func pointToDocument(payload map[string]*qdrant.Value) (corpus.Document, bool) {
	id := getStringValue(payload, FieldDocID)
	if id == "" {
		return corpus.Document{}, false
	}
	return corpus.Document{
		ID:       id,
		Title:    getStringValue(payload, FieldTitle),
		Abstract: getStringValue(payload, FieldAbstract),
		Tags:     getStringSliceValue(payload, FieldTags),
		Grade:    corpus.Grade(getIntValue(payload, FieldRelevance)),
	}, true
}

// termVector hashes term counts into sparse indices. Colliding terms share
// an index and their counts add.
func termVector(text string) ([]uint32, []float32) {
	counts := make(map[uint32]float32)
	for _, tok := range corpus.Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		counts[h.Sum32()]++
	}

	indices := make([]uint32, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = counts[idx]
	}
	return indices, values
}

func getStringValue(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
			return sv.StringValue
		}
	}
	return ""
}

func getIntValue(payload map[string]*qdrant.Value, key string) int {
	if v, ok := payload[key]; ok {
		switch n := v.Kind.(type) {
		case *qdrant.Value_IntegerValue:
			return int(n.IntegerValue)
		case *qdrant.Value_DoubleValue:
			return int(n.DoubleValue)
		}
	}
	return 0
}

func getStringSliceValue(payload map[string]*qdrant.Value, key string) []string {
	if v, ok := payload[key]; ok {
		if lv, ok := v.Kind.(*qdrant.Value_ListValue); ok {
			result := make([]string, 0, len(lv.ListValue.Values))
			for _, item := range lv.ListValue.Values {
				if sv, ok := item.Kind.(*qdrant.Value_StringValue); ok {
					result = append(result, sv.StringValue)
				}
			}
			return result
		}
	}
	return nil
}
