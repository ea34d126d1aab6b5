// File: internal/listing/memory_repository.go
package listing

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"wws_listings_backend/internal/common"
)

// InMemoryRepository keeps listings in process memory. It is used by tests and
// for running the API without a database.
type InMemoryRepository struct {
	mu       sync.RWMutex
	listings map[uint]*Listing
	nextID   uint
	now      func() time.Time
}

// NewInMemoryRepository returns an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		listings: make(map[uint]*Listing),
		nextID:   1,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a copy of listing and assigns its ID and timestamps.
func (r *InMemoryRepository) Create(_ context.Context, listing *Listing) error {
	if listing == nil {
		return errors.New("listing is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	listing.ID = r.nextID
	r.nextID++
	listing.CreatedAt = now
	listing.UpdatedAt = now
	if listing.Status == "" {
		listing.Status = StatusPending
	}
	listing.normalizeLists()
	listing.SearchText = listing.BuildSearchText()

	r.listings[listing.ID] = cloneListing(listing)
	return nil
}

// FindByID returns a copy of the stored listing.
func (r *InMemoryRepository) FindByID(_ context.Context, id uint) (*Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listing, ok := r.listings[id]
	if !ok {
		return nil, common.ErrNotFound.WithMessage("Listing not found.")
	}
	return cloneListing(listing), nil
}

// FindAll mirrors the filtering and ordering of the GORM repository.
func (r *InMemoryRepository) FindAll(_ context.Context, filter Filter) ([]Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	result := make([]Listing, 0, len(r.listings))
	for _, l := range r.listings {
		if !matchesStatus(l.Status, filter.Status) {
			continue
		}
		if search != "" && !strings.Contains(l.SearchText, search) {
			continue
		}
		if filter.Price != nil && !filter.Price.Contains(l.RentPrice) {
			continue
		}
		if filter.MinArea != nil && l.Size < *filter.MinArea {
			continue
		}
		if filter.Rooms != nil && !filter.Rooms.Matches(l.Rooms) {
			continue
		}
		if filter.MinWWSPoints != nil && l.WWSPoints < *filter.MinWWSPoints {
			continue
		}
		result = append(result, *cloneListing(l))
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch filter.Sort {
		case SortPriceAsc:
			if a.RentPrice != b.RentPrice {
				return a.RentPrice < b.RentPrice
			}
		case SortPriceDesc:
			if a.RentPrice != b.RentPrice {
				return a.RentPrice > b.RentPrice
			}
		case SortWWSAsc:
			if a.WWSPoints != b.WWSPoints {
				return a.WWSPoints < b.WWSPoints
			}
		case SortWWSDesc:
			if a.WWSPoints != b.WWSPoints {
				return a.WWSPoints > b.WWSPoints
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return result, nil
}

// UpdateStatus changes the status and bumps UpdatedAt.
func (r *InMemoryRepository) UpdateStatus(_ context.Context, id uint, status ListingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return common.ErrNotFound.WithMessage("Listing not found.")
	}
	listing.Status = status
	listing.UpdatedAt = r.now()
	return nil
}

// FindAllForSync returns one page of listings ordered by id.
func (r *InMemoryRepository) FindAllForSync(_ context.Context, offset, limit int) ([]Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint, 0, len(r.listings))
	for id := range r.listings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := []Listing{}
	for i := offset; i < len(ids) && len(result) < limit; i++ {
		result = append(result, *cloneListing(r.listings[ids[i]]))
	}
	return result, nil
}

func matchesStatus(status ListingStatus, want *ListingStatus) bool {
	if want != nil {
		return status == *want
	}
	for _, s := range DefaultVisibleStatuses {
		if status == s {
			return true
		}
	}
	return false
}

func cloneListing(l *Listing) *Listing {
	cp := *l
	cp.KitchenAmenities = append([]string{}, l.KitchenAmenities...)
	cp.BathroomAmenities = append([]string{}, l.BathroomAmenities...)
	cp.Photos = append([]string{}, l.Photos...)
	if l.ContactPhone != nil {
		phone := *l.ContactPhone
		cp.ContactPhone = &phone
	}
	return &cp
}
