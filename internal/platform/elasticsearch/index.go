package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const ListingsIndexName = "rental_listings"

// defineListingsMapping returns the JSON string for the rental listings index mapping.
func defineListingsMapping() (string, error) {
	keyword := map[string]interface{}{"type": "keyword"}
	integer := map[string]interface{}{"type": "integer"}
	date := map[string]interface{}{"type": "date"}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":      map[string]interface{}{"type": "long"},
				"title":   map[string]interface{}{"type": "text", "fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256}}},
				"address": map[string]interface{}{"type": "text", "fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256}}},
				// Listing texts are written in Dutch.
				"description":        map[string]interface{}{"type": "text", "analyzer": "dutch"},
				"apartment_type":     keyword,
				"size":               integer,
				"rooms":              integer,
				"bedrooms":           integer,
				"energy_label":       keyword,
				"woz":                integer,
				"kitchen_amenities":  keyword,
				"bathroom_amenities": keyword,
				"outdoor_space_type": keyword,
				"outdoor_space_size": integer,
				"photo_count":        integer,
				"rent_price":         integer,
				"wws_points":         integer,
				"max_legal_rent":     map[string]interface{}{"type": "scaled_float", "scaling_factor": 100},
				"status":             keyword,
				"created_at":         date,
				"updated_at":         date,
			},
		},
	}
	mappingBytes, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling listings mapping to JSON: %w", err)
	}
	return string(mappingBytes), nil
}

// CreateListingsIndexIfNotExists creates the listings index with the defined mapping
// if it does not already exist.
func CreateListingsIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	// 1. Check if the index exists
	req := esapi.IndicesExistsRequest{
		Index: []string{ListingsIndexName},
	}
	res, err := req.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error checking if listings index exists", zap.Error(err))
		return fmt.Errorf("error checking if listings index exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Info("Listings index already exists", zap.String("index_name", ListingsIndexName))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Error("Error checking if listings index exists, unexpected status",
			zap.String("status", res.Status()),
			zap.String("index_name", ListingsIndexName),
		)
		return fmt.Errorf("error checking if listings index exists: status %s", res.Status())
	}

	// 2. Define the mapping
	mappingJSON, err := defineListingsMapping()
	if err != nil {
		log.Error("Failed to define listings mapping", zap.Error(err))
		return err
	}
	log.Debug("Listings index mapping defined", zap.String("mapping", mappingJSON))

	// 3. Create the index
	createReq := esapi.IndicesCreateRequest{
		Index: ListingsIndexName,
		Body:  strings.NewReader(mappingJSON),
	}
	createRes, err := createReq.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error creating listings index", zap.Error(err), zap.String("index_name", ListingsIndexName))
		return fmt.Errorf("error creating listings index %s: %w", ListingsIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		log.Error("Failed to create listings index",
			zap.String("status", createRes.Status()),
			zap.Any("error_details", DecodeErrorBody(createRes)),
			zap.String("index_name", ListingsIndexName),
		)
		return fmt.Errorf("failed to create listings index %s: status %s", ListingsIndexName, createRes.Status())
	}

	log.Info("Listings index created successfully", zap.String("index_name", ListingsIndexName))
	return nil
}
