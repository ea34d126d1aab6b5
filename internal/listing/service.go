// File: internal/listing/service.go
package listing

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"wws_listings_backend/internal/common"
	"wws_listings_backend/internal/scoring"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Service defines the interface for listing-related business logic.
type Service interface {
	CreateListing(ctx context.Context, req CreateListingRequest, photos []string) (*Listing, error)
	GetListingByID(ctx context.Context, id uint) (*Listing, error)
	FindListings(ctx context.Context, filter Filter) ([]Listing, error)
	UpdateListingStatus(ctx context.Context, id uint, status string) (*Listing, error)
}

// Indexer receives listings after they are written so a search index can follow
// the database. Implementations log their own failures.
type Indexer interface {
	IndexListing(ctx context.Context, listing *Listing)
}

// NoopIndexer is used when no search backend is configured.
type NoopIndexer struct{}

func (NoopIndexer) IndexListing(context.Context, *Listing) {}

// ServiceImplementation implements the listing Service interface.
type ServiceImplementation struct {
	repo       Repository
	calculator *scoring.Calculator
	indexer    Indexer
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewService creates a new listing service. A nil indexer disables indexing.
func NewService(
	repo Repository,
	calculator *scoring.Calculator,
	indexer Indexer,
	logger *zap.Logger,
) Service {
	if indexer == nil {
		indexer = NoopIndexer{}
	}
	if calculator == nil {
		calculator = scoring.NewCalculator(scoring.DefaultEurPerPoint)
	}
	return &ServiceImplementation{
		repo:       repo,
		calculator: calculator,
		indexer:    indexer,
		validate:   newValidator(),
		logger:     logger,
	}
}

// newValidator reports field names by their json tag so error details match
// the request payload.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// CreateListing validates the request, scores it and stores it as pending.
func (s *ServiceImplementation) CreateListing(ctx context.Context, req CreateListingRequest, photos []string) (*Listing, error) {
	req.trim()
	if err := s.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return nil, common.NewValidationAPIError(common.FormatValidationErrors(validationErrs))
		}
		return nil, common.ErrValidation.WithDetails(err.Error())
	}

	outdoorType := OutdoorSpaceType(req.OutdoorSpaceType)
	if outdoorType == "" {
		outdoorType = OutdoorSpaceNone
	}
	outdoorSize := 0
	if outdoorType != OutdoorSpaceNone {
		if req.OutdoorSpaceSize == nil || *req.OutdoorSpaceSize <= 0 {
			return nil, common.NewValidationAPIError(map[string]string{
				"outdoorSpaceSize": "The outdoorSpaceSize field is required when outdoorSpaceType is not none.",
			})
		}
		outdoorSize = *req.OutdoorSpaceSize
	}

	listing := &Listing{
		Title:             req.Title,
		Address:           req.Address,
		Description:       req.Description,
		ApartmentType:     ApartmentType(req.ApartmentType),
		Size:              *req.Size,
		Rooms:             *req.Rooms,
		Bedrooms:          *req.Bedrooms,
		EnergyLabel:       req.EnergyLabel,
		WOZ:               *req.WOZ,
		KitchenAmenities:  req.KitchenAmenities,
		BathroomAmenities: req.BathroomAmenities,
		OutdoorSpaceType:  outdoorType,
		OutdoorSpaceSize:  outdoorSize,
		Photos:            photos,
		RentPrice:         *req.RentPrice,
		ContactName:       req.ContactName,
		ContactEmail:      req.ContactEmail,
		ContactPhone:      req.ContactPhone,
		Status:            StatusPending,
	}
	listing.normalizeLists()

	result := s.calculator.Compute(listing.ScoringInput())
	listing.WWSPoints = result.Points
	listing.MaxLegalRent = result.MaxLegalRent

	if err := s.repo.Create(ctx, listing); err != nil {
		s.logger.Error("Failed to create listing", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Listing created",
		zap.Uint("listingID", listing.ID),
		zap.Int("wwsPoints", listing.WWSPoints),
		zap.Float64("maxLegalRent", listing.MaxLegalRent),
	)
	s.indexer.IndexListing(ctx, listing)
	return listing, nil
}

// GetListingByID retrieves a listing regardless of its status.
func (s *ServiceImplementation) GetListingByID(ctx context.Context, id uint) (*Listing, error) {
	return s.repo.FindByID(ctx, id)
}

// FindListings runs a filtered, sorted query.
func (s *ServiceImplementation) FindListings(ctx context.Context, filter Filter) ([]Listing, error) {
	if filter.UnknownSort != "" {
		s.logger.Warn("Unknown sort key, falling back to newest", zap.String("sort", filter.UnknownSort))
	}
	if filter.Sort == "" {
		filter.Sort = SortNewest
	}
	return s.repo.FindAll(ctx, filter)
}

// UpdateListingStatus moves a listing to another lifecycle state.
func (s *ServiceImplementation) UpdateListingStatus(ctx context.Context, id uint, status string) (*Listing, error) {
	newStatus, ok := ParseStatus(strings.TrimSpace(status))
	if !ok {
		return nil, common.NewValidationAPIError(map[string]string{
			"status": "The status field must be one of the following values: pending approved rejected rented.",
		})
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("Failed to update listing status", zap.Uint("listingID", id), zap.Error(err))
		}
		return nil, err
	}

	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Listing status updated", zap.Uint("listingID", id), zap.String("status", string(newStatus)))
	s.indexer.IndexListing(ctx, listing)
	return listing, nil
}

func (r *CreateListingRequest) trim() {
	r.Title = strings.TrimSpace(r.Title)
	r.Address = strings.TrimSpace(r.Address)
	r.Description = strings.TrimSpace(r.Description)
	r.ApartmentType = strings.TrimSpace(r.ApartmentType)
	r.EnergyLabel = strings.TrimSpace(r.EnergyLabel)
	r.OutdoorSpaceType = strings.TrimSpace(r.OutdoorSpaceType)
	r.ContactName = strings.TrimSpace(r.ContactName)
	r.ContactEmail = strings.TrimSpace(r.ContactEmail)
	if r.ContactPhone != nil {
		phone := strings.TrimSpace(*r.ContactPhone)
		if phone == "" {
			r.ContactPhone = nil
		} else {
			r.ContactPhone = &phone
		}
	}
	r.KitchenAmenities = trimTags(r.KitchenAmenities)
	r.BathroomAmenities = trimTags(r.BathroomAmenities)
}

// trimTags returns the tags trimmed and in order. Blank tags are kept so validation rejects them.
func trimTags(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.TrimSpace(t)
	}
	return out
}
