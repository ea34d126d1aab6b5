package esutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wws_listings_backend/internal/listing"
	"wws_listings_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// DefaultSyncBatchSize is the number of listings sent per bulk request.
const DefaultSyncBatchSize = 500

// ListingDocument is the search index representation of a listing. Contact
// details are left out of the index.
type ListingDocument struct {
	ID                uint      `json:"id"`
	Title             string    `json:"title"`
	Address           string    `json:"address"`
	Description       string    `json:"description"`
	ApartmentType     string    `json:"apartment_type"`
	Size              int       `json:"size"`
	Rooms             int       `json:"rooms"`
	Bedrooms          int       `json:"bedrooms"`
	EnergyLabel       string    `json:"energy_label"`
	WOZ               int       `json:"woz"`
	KitchenAmenities  []string  `json:"kitchen_amenities"`
	BathroomAmenities []string  `json:"bathroom_amenities"`
	OutdoorSpaceType  string    `json:"outdoor_space_type"`
	OutdoorSpaceSize  int       `json:"outdoor_space_size"`
	PhotoCount        int       `json:"photo_count"`
	RentPrice         int       `json:"rent_price"`
	WWSPoints         int       `json:"wws_points"`
	MaxLegalRent      float64   `json:"max_legal_rent"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ListingToElasticsearchDoc converts a listing.Listing object to its Elasticsearch document representation.
func ListingToElasticsearchDoc(l *listing.Listing) (string, error) {
	if l == nil {
		return "", errors.New("listing cannot be nil")
	}

	doc := ListingDocument{
		ID:                l.ID,
		Title:             l.Title,
		Address:           l.Address,
		Description:       l.Description,
		ApartmentType:     string(l.ApartmentType),
		Size:              l.Size,
		Rooms:             l.Rooms,
		Bedrooms:          l.Bedrooms,
		EnergyLabel:       l.EnergyLabel,
		WOZ:               l.WOZ,
		KitchenAmenities:  nonNil(l.KitchenAmenities),
		BathroomAmenities: nonNil(l.BathroomAmenities),
		OutdoorSpaceType:  string(l.OutdoorSpaceType),
		OutdoorSpaceSize:  l.OutdoorSpaceSize,
		PhotoCount:        len(l.Photos),
		RentPrice:         l.RentPrice,
		WWSPoints:         l.WWSPoints,
		MaxLegalRent:      l.MaxLegalRent,
		Status:            string(l.Status),
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("error marshalling listing to JSON for ES: %w", err)
	}
	return string(docBytes), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Indexer keeps the search index in step with listing writes. It implements
// listing.Indexer; failures are logged and never reach the caller.
type Indexer struct {
	client *elasticsearch.ESClientWrapper
	index  string
	logger *zap.Logger
}

var _ listing.Indexer = (*Indexer)(nil)

// NewIndexer returns an Indexer writing to the rental listings index.
func NewIndexer(client *elasticsearch.ESClientWrapper, logger *zap.Logger) *Indexer {
	return &Indexer{client: client, index: elasticsearch.ListingsIndexName, logger: logger.Named("listing_indexer")}
}

// NewListingIndexer picks the Elasticsearch indexer when a client is configured
// and a no-op otherwise.
func NewListingIndexer(client *elasticsearch.ESClientWrapper, logger *zap.Logger) listing.Indexer {
	if client == nil {
		return listing.NoopIndexer{}
	}
	return NewIndexer(client, logger)
}

// IndexListing upserts one listing document.
func (i *Indexer) IndexListing(ctx context.Context, l *listing.Listing) {
	if err := i.indexListing(ctx, l); err != nil {
		i.logger.Warn("Failed to index listing", zap.Uint("listingID", l.ID), zap.Error(err))
	}
}

func (i *Indexer) indexListing(ctx context.Context, l *listing.Listing) error {
	doc, err := ListingToElasticsearchDoc(l)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: strconv.FormatUint(uint64(l.ID), 10),
		Body:       strings.NewReader(doc),
	}
	res, err := req.Do(ctx, i.client.Client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index request failed: %s: %v", res.Status(), elasticsearch.DecodeErrorBody(res))
	}
	i.logger.Debug("Listing indexed", zap.Uint("listingID", l.ID))
	return nil
}
