// File: internal/listing/filter.go
package listing

import (
	"fmt"
	"strconv"
	"strings"
)

// SortKey selects the ordering of FindAll results.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortWWSAsc    SortKey = "wws-asc"
	SortWWSDesc   SortKey = "wws-desc"
)

var knownSortKeys = map[SortKey]struct{}{
	SortNewest:    {},
	SortPriceAsc:  {},
	SortPriceDesc: {},
	SortWWSAsc:    {},
	SortWWSDesc:   {},
}

// ListingQuery carries the raw query-string filters of GET /api/listings.
type ListingQuery struct {
	Search       string `form:"search"`
	PriceRange   string `form:"priceRange"`
	MinArea      string `form:"minArea"`
	Rooms        string `form:"rooms"`
	MinWWSPoints string `form:"minWwsPoints"`
	Sort         string `form:"sort"`
	Status       string `form:"status"`
}

// IntRange is an inclusive range. A nil Max means no upper bound.
type IntRange struct {
	Min int
	Max *int
}

// Contains reports whether v lies within the range.
func (r IntRange) Contains(v int) bool {
	if v < r.Min {
		return false
	}
	return r.Max == nil || v <= *r.Max
}

// RoomsFilter matches rooms exactly, or rooms >= Value when OrMore is set.
type RoomsFilter struct {
	Value  int
	OrMore bool
}

// Matches reports whether rooms satisfies the filter.
func (f RoomsFilter) Matches(rooms int) bool {
	if f.OrMore {
		return rooms >= f.Value
	}
	return rooms == f.Value
}

// Filter is the typed form of ListingQuery the repositories operate on.
// Nil fields are not applied.
type Filter struct {
	Status       *ListingStatus
	Search       string
	Price        *IntRange
	MinArea      *int
	Rooms        *RoomsFilter
	MinWWSPoints *int
	Sort         SortKey

	// UnknownSort holds a sort value that was not recognised and was replaced
	// by SortNewest.
	UnknownSort string
}

// FilterError reports a malformed filter parameter.
type FilterError struct {
	Param string
	Value string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %q", e.Value, e.Param)
}

// ParseListingQuery turns the raw query strings into a Filter. Empty parameters
// are treated as absent.
func ParseListingQuery(q ListingQuery) (Filter, error) {
	f := Filter{
		Search: strings.TrimSpace(q.Search),
		Sort:   SortNewest,
	}

	if raw := strings.TrimSpace(q.Status); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			return Filter{}, &FilterError{Param: "status", Value: q.Status}
		}
		f.Status = &status
	}

	if raw := strings.TrimSpace(q.PriceRange); raw != "" {
		r, err := parsePriceRange(raw)
		if err != nil {
			return Filter{}, &FilterError{Param: "priceRange", Value: q.PriceRange}
		}
		f.Price = r
	}

	if raw := strings.TrimSpace(q.MinArea); raw != "" {
		v, err := parseNonNegative(raw)
		if err != nil {
			return Filter{}, &FilterError{Param: "minArea", Value: q.MinArea}
		}
		f.MinArea = &v
	}

	if raw := strings.TrimSpace(q.Rooms); raw != "" {
		rf, err := parseRooms(raw)
		if err != nil {
			return Filter{}, &FilterError{Param: "rooms", Value: q.Rooms}
		}
		f.Rooms = rf
	}

	if raw := strings.TrimSpace(q.MinWWSPoints); raw != "" {
		v, err := parseNonNegative(raw)
		if err != nil {
			return Filter{}, &FilterError{Param: "minWwsPoints", Value: q.MinWWSPoints}
		}
		f.MinWWSPoints = &v
	}

	if raw := strings.TrimSpace(q.Sort); raw != "" {
		key := SortKey(raw)
		if _, ok := knownSortKeys[key]; ok {
			f.Sort = key
		} else {
			f.UnknownSort = raw
		}
	}

	return f, nil
}

// parsePriceRange accepts "min-max" and "min+".
func parsePriceRange(raw string) (*IntRange, error) {
	if strings.HasSuffix(raw, "+") {
		lo, err := parseNonNegative(strings.TrimSuffix(raw, "+"))
		if err != nil {
			return nil, err
		}
		return &IntRange{Min: lo}, nil
	}

	loRaw, hiRaw, found := strings.Cut(raw, "-")
	if !found {
		return nil, fmt.Errorf("price range %q has no separator", raw)
	}
	lo, err := parseNonNegative(loRaw)
	if err != nil {
		return nil, err
	}
	hi, err := parseNonNegative(hiRaw)
	if err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, fmt.Errorf("price range %q is inverted", raw)
	}
	return &IntRange{Min: lo, Max: &hi}, nil
}

// parseRooms accepts "N" and "N+".
func parseRooms(raw string) (*RoomsFilter, error) {
	orMore := strings.HasSuffix(raw, "+")
	v, err := parseNonNegative(strings.TrimSuffix(raw, "+"))
	if err != nil {
		return nil, err
	}
	return &RoomsFilter{Value: v, OrMore: orMore}, nil
}

func parseNonNegative(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %d", v)
	}
	return v, nil
}
