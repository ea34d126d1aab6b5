// File: internal/listing/model.go
package listing

import (
	"strings"

	"wws_listings_backend/internal/common"
	"wws_listings_backend/internal/scoring"

	"gorm.io/gorm"
)

// --- Enumerations ---

type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusApproved ListingStatus = "approved"
	StatusRejected ListingStatus = "rejected"
	StatusRented   ListingStatus = "rented"
)

// AllStatuses lists every lifecycle state in declaration order.
var AllStatuses = []ListingStatus{StatusPending, StatusApproved, StatusRejected, StatusRented}

// DefaultVisibleStatuses are returned by FindAll when no status filter is given.
var DefaultVisibleStatuses = []ListingStatus{StatusPending, StatusApproved}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (ListingStatus, bool) {
	for _, s := range AllStatuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

type ApartmentType string

const (
	ApartmentTypeAppartement ApartmentType = "appartement"
	ApartmentTypeStudio      ApartmentType = "studio"
	ApartmentTypeKamer       ApartmentType = "kamer"
	ApartmentTypeHuis        ApartmentType = "huis"
)

type OutdoorSpaceType string

const (
	OutdoorSpaceNone    OutdoorSpaceType = "none"
	OutdoorSpaceBalcony OutdoorSpaceType = "balcony"
	OutdoorSpaceGarden  OutdoorSpaceType = "garden"
	OutdoorSpaceTerrace OutdoorSpaceType = "terrace"
)

// --- Main Listing Model ---

// Listing is a rental listing as stored in the listings table. The amenity and
// photo lists are stored as JSON-encoded string arrays.
type Listing struct {
	common.BaseModel
	Title             string           `gorm:"type:text;not null"`
	Address           string           `gorm:"type:text;not null"`
	Description       string           `gorm:"type:text;not null"`
	ApartmentType     ApartmentType    `gorm:"type:varchar(20);not null"`
	Size              int              `gorm:"not null"`
	Rooms             int              `gorm:"not null"`
	Bedrooms          int              `gorm:"not null"`
	EnergyLabel       string           `gorm:"type:varchar(8);not null"`
	WOZ               int              `gorm:"column:woz;not null"`
	KitchenAmenities  []string         `gorm:"type:text;serializer:json"`
	BathroomAmenities []string         `gorm:"type:text;serializer:json"`
	OutdoorSpaceType  OutdoorSpaceType `gorm:"type:varchar(20);not null;default:'none'"`
	OutdoorSpaceSize  int              `gorm:"not null;default:0"`
	Photos            []string         `gorm:"type:text;serializer:json"`
	RentPrice         int              `gorm:"not null;index"`
	WWSPoints         int              `gorm:"column:wws_points;not null;default:0;index"`
	MaxLegalRent      float64          `gorm:"column:max_legal_rent;type:decimal(10,2);not null;default:0"`
	ContactName       string           `gorm:"type:varchar(150);not null"`
	ContactEmail      string           `gorm:"type:varchar(255);not null"`
	ContactPhone      *string          `gorm:"type:varchar(50)"`
	Status            ListingStatus    `gorm:"type:varchar(20);not null;default:'pending';index"`
	// SearchText is the lowercased title, address and description matched by
	// free-text search. Lowercasing happens in Go so non-ASCII letters fold on
	// every driver.
	SearchText string `gorm:"column:search_text;type:text;not null;default:''" json:"-"`
}

// TableName pins the table name used by the SQL migrations.
func (Listing) TableName() string { return "listings" }

// searchFieldSeparator keeps a query from matching across field boundaries.
const searchFieldSeparator = "\x1f"

// BuildSearchText returns the lowercased text free-text search matches against.
func (l *Listing) BuildSearchText() string {
	return strings.ToLower(strings.Join([]string{l.Title, l.Address, l.Description}, searchFieldSeparator))
}

// BeforeCreate fills SearchText. Listing texts never change after creation.
func (l *Listing) BeforeCreate(_ *gorm.DB) error {
	l.SearchText = l.BuildSearchText()
	return nil
}

// ScoringInput returns the attributes the Scoring Engine consumes.
func (l *Listing) ScoringInput() scoring.Input {
	return scoring.Input{
		Size:              float64(l.Size),
		EnergyLabel:       l.EnergyLabel,
		WOZ:               float64(l.WOZ),
		KitchenAmenities:  l.KitchenAmenities,
		BathroomAmenities: l.BathroomAmenities,
		OutdoorSpaceSize:  float64(l.OutdoorSpaceSize),
		Rooms:             l.Rooms,
	}
}

// normalizeLists replaces nil slices so they are stored as "[]" rather than "null".
func (l *Listing) normalizeLists() {
	if l.KitchenAmenities == nil {
		l.KitchenAmenities = []string{}
	}
	if l.BathroomAmenities == nil {
		l.BathroomAmenities = []string{}
	}
	if l.Photos == nil {
		l.Photos = []string{}
	}
}

// --- Request DTOs ---

// CreateListingRequest is the payload of POST /api/listings. It binds from a
// multipart form as well as from JSON. Validation runs in the service.
type CreateListingRequest struct {
	Title             string   `json:"title" form:"title" validate:"required,max=255"`
	Address           string   `json:"address" form:"address" validate:"required,max=255"`
	Description       string   `json:"description" form:"description" validate:"required"`
	ApartmentType     string   `json:"apartmentType" form:"apartmentType" validate:"required,oneof=appartement studio kamer huis"`
	Size              *int     `json:"size" form:"size" validate:"required,gt=0"`
	Rooms             *int     `json:"rooms" form:"rooms" validate:"required,gt=0"`
	Bedrooms          *int     `json:"bedrooms" form:"bedrooms" validate:"required,gte=0"`
	EnergyLabel       string   `json:"energyLabel" form:"energyLabel" validate:"required,oneof=A++++ A+++ A++ A+ A B C D E F G"`
	WOZ               *int     `json:"woz" form:"woz" validate:"required,gte=0"`
	KitchenAmenities  []string `json:"kitchenAmenities" form:"kitchenAmenities" validate:"max=50,dive,required,max=100"`
	BathroomAmenities []string `json:"bathroomAmenities" form:"bathroomAmenities" validate:"max=50,dive,required,max=100"`
	OutdoorSpaceType  string   `json:"outdoorSpaceType" form:"outdoorSpaceType" validate:"omitempty,oneof=none balcony garden terrace"`
	OutdoorSpaceSize  *int     `json:"outdoorSpaceSize" form:"outdoorSpaceSize" validate:"omitempty,gte=0"`
	RentPrice         *int     `json:"rentPrice" form:"rentPrice" validate:"required,gt=0"`
	ContactName       string   `json:"contactName" form:"contactName" validate:"required,max=150"`
	ContactEmail      string   `json:"contactEmail" form:"contactEmail" validate:"required,email,max=255"`
	ContactPhone      *string  `json:"contactPhone" form:"contactPhone" validate:"omitempty,max=50"`
}

// UpdateListingStatusRequest is the payload of PATCH /api/listings/:id/status.
type UpdateListingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// --- Response DTOs ---

// ListingResponse is the JSON representation of a listing.
type ListingResponse struct {
	ID                uint             `json:"id"`
	Title             string           `json:"title"`
	Address           string           `json:"address"`
	Description       string           `json:"description"`
	ApartmentType     ApartmentType    `json:"apartmentType"`
	Size              int              `json:"size"`
	Rooms             int              `json:"rooms"`
	Bedrooms          int              `json:"bedrooms"`
	EnergyLabel       string           `json:"energyLabel"`
	WOZ               int              `json:"woz"`
	KitchenAmenities  []string         `json:"kitchenAmenities"`
	BathroomAmenities []string         `json:"bathroomAmenities"`
	OutdoorSpaceType  OutdoorSpaceType `json:"outdoorSpaceType"`
	OutdoorSpaceSize  int              `json:"outdoorSpaceSize"`
	Photos            []string         `json:"photos"`
	RentPrice         int              `json:"rentPrice"`
	WWSPoints         int              `json:"wwsPoints"`
	MaxLegalRent      float64          `json:"maxLegalRent"`
	WWSDetails        []scoring.Term   `json:"wwsDetails"`
	ContactName       string           `json:"contactName"`
	ContactEmail      string           `json:"contactEmail"`
	ContactPhone      *string          `json:"contactPhone,omitempty"`
	Status            ListingStatus    `json:"status"`
	CreatedAt         string           `json:"createdAt"`
	UpdatedAt         string           `json:"updatedAt"`
}

// ToListingResponse converts a Listing model to its API shape.
func ToListingResponse(l *Listing) ListingResponse {
	if l == nil {
		return ListingResponse{}
	}
	cp := *l
	cp.normalizeLists()

	return ListingResponse{
		ID:                cp.ID,
		Title:             cp.Title,
		Address:           cp.Address,
		Description:       cp.Description,
		ApartmentType:     cp.ApartmentType,
		Size:              cp.Size,
		Rooms:             cp.Rooms,
		Bedrooms:          cp.Bedrooms,
		EnergyLabel:       cp.EnergyLabel,
		WOZ:               cp.WOZ,
		KitchenAmenities:  cp.KitchenAmenities,
		BathroomAmenities: cp.BathroomAmenities,
		OutdoorSpaceType:  cp.OutdoorSpaceType,
		OutdoorSpaceSize:  cp.OutdoorSpaceSize,
		Photos:            cp.Photos,
		RentPrice:         cp.RentPrice,
		WWSPoints:         cp.WWSPoints,
		MaxLegalRent:      cp.MaxLegalRent,
		WWSDetails:        scoring.Breakdown(cp.ScoringInput()),
		ContactName:       cp.ContactName,
		ContactEmail:      cp.ContactEmail,
		ContactPhone:      cp.ContactPhone,
		Status:            cp.Status,
		CreatedAt:         cp.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:         cp.UpdatedAt.UTC().Format(timeLayout),
	}
}

// ToListingResponses converts a slice, never returning nil so the JSON is "[]".
func ToListingResponses(listings []Listing) []ListingResponse {
	out := make([]ListingResponse, len(listings))
	for i := range listings {
		out[i] = ToListingResponse(&listings[i])
	}
	return out
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
