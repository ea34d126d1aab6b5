package esutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"wws_listings_backend/internal/listing"
	"wws_listings_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Syncer rebuilds the search index from the listing repository.
type Syncer struct {
	repo      listing.Repository
	client    *elasticsearch.ESClientWrapper
	logger    *zap.Logger
	batchSize int
}

// NewSyncer creates a Syncer. A non-positive batch size uses DefaultSyncBatchSize.
func NewSyncer(repo listing.Repository, client *elasticsearch.ESClientWrapper, logger *zap.Logger, batchSize int) *Syncer {
	if batchSize <= 0 {
		batchSize = DefaultSyncBatchSize
	}
	return &Syncer{repo: repo, client: client, logger: logger.Named("listing_sync"), batchSize: batchSize}
}

// bulkResponse is the part of the _bulk reply needed to detect item failures.
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// Sync indexes every listing, regardless of status, in batches. It returns the
// number of documents the cluster accepted.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	if err := elasticsearch.CreateListingsIndexIfNotExists(ctx, s.client, s.logger); err != nil {
		return 0, err
	}

	indexed := 0
	for offset := 0; ; offset += s.batchSize {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		batch, err := s.repo.FindAllForSync(ctx, offset, s.batchSize)
		if err != nil {
			return indexed, fmt.Errorf("load listings at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}

		n, err := s.bulkIndex(ctx, batch)
		indexed += n
		if err != nil {
			return indexed, err
		}
		s.logger.Debug("Indexed listing batch", zap.Int("offset", offset), zap.Int("count", n))

		if len(batch) < s.batchSize {
			break
		}
	}

	s.logger.Info("Listing index sync finished", zap.Int("indexed", indexed))
	return indexed, nil
}

func (s *Syncer) bulkIndex(ctx context.Context, batch []listing.Listing) (int, error) {
	var body bytes.Buffer
	for i := range batch {
		doc, err := ListingToElasticsearchDoc(&batch[i])
		if err != nil {
			return 0, err
		}
		meta := map[string]map[string]string{
			"index": {"_index": elasticsearch.ListingsIndexName, "_id": strconv.FormatUint(uint64(batch[i].ID), 10)},
		}
		metaBytes, err := json.Marshal(meta)
		if err != nil {
			return 0, fmt.Errorf("marshal bulk metadata: %w", err)
		}
		body.Write(metaBytes)
		body.WriteByte('\n')
		body.WriteString(doc)
		body.WriteByte('\n')
	}

	res, err := esapi.BulkRequest{Body: &body}.Do(ctx, s.client.Client)
	if err != nil {
		return 0, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("bulk request failed: %s: %v", res.Status(), elasticsearch.DecodeErrorBody(res))
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}
	if !parsed.Errors {
		return len(batch), nil
	}

	failed := 0
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Error != nil {
				failed++
				s.logger.Warn("Listing failed to index",
					zap.String("id", result.ID),
					zap.Int("status", result.Status),
					zap.String("type", result.Error.Type),
					zap.String("reason", result.Error.Reason),
				)
			}
		}
	}
	return len(batch) - failed, fmt.Errorf("%d of %d listings failed to index", failed, len(batch))
}
