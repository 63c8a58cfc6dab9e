package qdrant

import (
	"context"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// TermsVector is the name of the sparse term-frequency vector.
const TermsVector = "terms"

// EnsureCollection creates the document collection if it does not exist.
// Documents carry only a sparse term vector; the payload holds the text.
func (c *Client) EnsureCollection(ctx context.Context, name string) error {
	ctx, release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	exists, err := c.client.CollectionExists(ctx, name)
	if err != nil {
		return mapError("check collection", err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		SparseVectorsConfig: &qdrant.SparseVectorConfig{
			Map: map[string]*qdrant.SparseVectorParams{
				TermsVector: {
					Index: &qdrant.SparseIndexConfig{
						OnDisk:            qdrant.PtrOf(false),
						FullScanThreshold: qdrant.PtrOf(uint64(10000)),
					},
				},
			},
		},
		OnDiskPayload: qdrant.PtrOf(true),
	})
	if err != nil {
		return mapError("create collection "+name, err)
	}

	return c.createPayloadIndexes(ctx, name)
}

// createPayloadIndexes indexes the fields document filters match on.
func (c *Client) createPayloadIndexes(ctx context.Context, collection string) error {
	indexes := []struct {
		field  string
		schema qdrant.FieldType
	}{
		{FieldDocID, qdrant.FieldType_FieldTypeKeyword},
		{FieldTags, qdrant.FieldType_FieldTypeKeyword},
		{FieldTitle, qdrant.FieldType_FieldTypeText},
		{FieldAbstract, qdrant.FieldType_FieldTypeText},
		{FieldRelevance, qdrant.FieldType_FieldTypeInteger},
	}

	for _, idx := range indexes {
		_, err := c.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: collection,
			FieldName:      idx.field,
			FieldType:      qdrant.PtrOf(idx.schema),
		})
		if err != nil {
			// Index might already exist, which is fine
			if !strings.Contains(err.Error(), "already exists") {
				return mapError("create index on "+idx.field, err)
			}
		}
	}

	return nil
}

// DeleteCollection deletes a collection.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	ctx, release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := c.client.DeleteCollection(ctx, name); err != nil {
		return mapError("delete collection "+name, err)
	}
	return nil
}

// Count returns the number of documents matching filter.
func (c *Client) Count(ctx context.Context, collection string, filter DocumentFilter) (uint64, error) {
	ctx, release, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	count, err := c.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Filter:         filter.build(),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, mapError("count documents", err)
	}
	return count, nil
}
