// File: internal/listing/repository.go
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wws_listings_backend/internal/common"

	"gorm.io/gorm"
)

// Repository defines the interface for listing data operations.
type Repository interface {
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id uint) (*Listing, error)
	FindAll(ctx context.Context, filter Filter) ([]Listing, error)
	UpdateStatus(ctx context.Context, id uint, status ListingStatus) error
	// FindAllForSync pages through every listing, regardless of status, in id order.
	FindAllForSync(ctx context.Context, offset, limit int) ([]Listing, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM listing repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Create inserts a new listing. ID and timestamps are populated on success.
func (r *gormRepository) Create(ctx context.Context, listing *Listing) error {
	listing.normalizeLists()
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithMessage("A listing with similar unique details already exists.")
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// FindByID retrieves a listing by its ID.
func (r *gormRepository) FindByID(ctx context.Context, id uint) (*Listing, error) {
	var listing Listing
	err := r.db.WithContext(ctx).First(&listing, "listings.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("Listing not found.")
		}
		return nil, fmt.Errorf("failed to find listing %d: %w", id, err)
	}
	listing.normalizeLists()
	return &listing, nil
}

// FindAll applies every non-nil filter (AND-combined) and the requested ordering.
func (r *gormRepository) FindAll(ctx context.Context, filter Filter) ([]Listing, error) {
	dbQuery := r.db.WithContext(ctx).Model(&Listing{})

	// --- Apply Filters ---
	if filter.Status != nil {
		dbQuery = dbQuery.Where("listings.status = ?", *filter.Status)
	} else {
		dbQuery = dbQuery.Where("listings.status IN (?)", DefaultVisibleStatuses)
	}
	if filter.Search != "" {
		searchTerm := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		dbQuery = dbQuery.Where(`listings.search_text LIKE ? ESCAPE '\'`, searchTerm)
	}
	if filter.Price != nil {
		dbQuery = dbQuery.Where("listings.rent_price >= ?", filter.Price.Min)
		if filter.Price.Max != nil {
			dbQuery = dbQuery.Where("listings.rent_price <= ?", *filter.Price.Max)
		}
	}
	if filter.MinArea != nil {
		dbQuery = dbQuery.Where("listings.size >= ?", *filter.MinArea)
	}
	if filter.Rooms != nil {
		if filter.Rooms.OrMore {
			dbQuery = dbQuery.Where("listings.rooms >= ?", filter.Rooms.Value)
		} else {
			dbQuery = dbQuery.Where("listings.rooms = ?", filter.Rooms.Value)
		}
	}
	if filter.MinWWSPoints != nil {
		dbQuery = dbQuery.Where("listings.wws_points >= ?", *filter.MinWWSPoints)
	}

	// --- Apply Sorting ---
	switch filter.Sort {
	case SortPriceAsc:
		dbQuery = dbQuery.Order("listings.rent_price ASC")
	case SortPriceDesc:
		dbQuery = dbQuery.Order("listings.rent_price DESC")
	case SortWWSAsc:
		dbQuery = dbQuery.Order("listings.wws_points ASC")
	case SortWWSDesc:
		dbQuery = dbQuery.Order("listings.wws_points DESC")
	}
	dbQuery = dbQuery.Order("listings.created_at DESC").Order("listings.id DESC")

	listings := []Listing{}
	if err := dbQuery.Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	for i := range listings {
		listings[i].normalizeLists()
	}
	return listings, nil
}

// UpdateStatus sets the status of a listing. Unknown ids report not found.
func (r *gormRepository) UpdateStatus(ctx context.Context, id uint, status ListingStatus) error {
	result := r.db.WithContext(ctx).Model(&Listing{}).Where("id = ?", id).Updates(map[string]interface{}{"status": status})
	if result.Error != nil {
		return fmt.Errorf("failed to update listing status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithMessage("Listing not found.")
	}
	return nil
}

// FindAllForSync returns one page of listings ordered by id.
func (r *gormRepository) FindAllForSync(ctx context.Context, offset, limit int) ([]Listing, error) {
	listings := []Listing{}
	err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to page listings for sync: %w", err)
	}
	for i := range listings {
		listings[i].normalizeLists()
	}
	return listings, nil
}

// BackfillSearchText fills search_text for rows stored before the column
// existed. It returns the number of rows updated.
func BackfillSearchText(ctx context.Context, db *gorm.DB) (int, error) {
	updated := 0
	var batch []Listing
	result := db.WithContext(ctx).Model(&Listing{}).
		Select("id", "title", "address", "description").
		Where("search_text = ?", "").
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				err := db.WithContext(ctx).Model(&Listing{}).Where("id = ?", batch[i].ID).
					UpdateColumn("search_text", batch[i].BuildSearchText()).Error
				if err != nil {
					return err
				}
				updated++
			}
			return nil
		})
	if result.Error != nil {
		return updated, fmt.Errorf("failed to backfill listing search text: %w", result.Error)
	}
	return updated, nil
}

// isUniqueViolation recognises unique-constraint failures from both drivers,
// translated or not.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
