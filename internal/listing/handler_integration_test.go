package listing_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wws_listings_backend/internal/filestorage"
	"wws_listings_backend/internal/listing"
	"wws_listings_backend/internal/middleware"
	"wws_listings_backend/internal/scoring"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const testAdminKey = "test-admin-key"

// HandlerTestSuite exercises the listing routes end to end over an in-memory repository.
type HandlerTestSuite struct {
	suite.Suite
	Router      *gin.Engine
	ListingRepo *listing.InMemoryRepository
	Storage     *filestorage.FileStorageService
	UploadsDir  string
}

func (s *HandlerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

// SetupTest builds a fresh router per test so listings do not leak between tests.
func (s *HandlerTestSuite) SetupTest() {
	logger := zap.NewNop()
	s.UploadsDir = s.T().TempDir()

	storage, err := filestorage.NewFileStorageService(filestorage.Options{
		StoragePath: s.UploadsDir,
		PublicRoute: "/uploads",
		MaxFiles:    10,
		MaxFileSize: 1 << 20,
	}, logger)
	s.Require().NoError(err)
	s.Storage = storage

	s.ListingRepo = listing.NewInMemoryRepository()
	service := listing.NewService(s.ListingRepo, scoring.NewCalculator(scoring.DefaultEurPerPoint), listing.NoopIndexer{}, logger)
	handler := listing.NewHandler(service, storage, logger, 8<<20)

	router := gin.New()
	api := router.Group("/api")
	handler.RegisterRoutes(api, middleware.APIKeyAuthMiddleware(testAdminKey, logger))
	s.Router = router
}

func (s *HandlerTestSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) createReference() listing.ListingResponse {
	req, err := CreateMultipartRequest(http.MethodPost, "/api/listings", referenceFormFields(), nil)
	s.Require().NoError(err)
	w := s.serve(req)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decodeListing(s.T(), w.Body.Bytes())
}

func (s *HandlerTestSuite) TestCreateListing_Multipart() {
	files := []testFile{
		{Field: listing.PhotoField, Filename: "woonkamer.jpg", Content: []byte("jpg-bytes")},
		{Field: listing.PhotoField, Filename: "Keuken.PNG", Content: []byte("png-bytes")},
	}
	req, err := CreateMultipartRequest(http.MethodPost, "/api/listings", referenceFormFields(), files)
	s.Require().NoError(err)

	w := s.serve(req)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	created := decodeListing(s.T(), w.Body.Bytes())
	s.NotZero(created.ID)
	s.Equal(listing.StatusPending, created.Status)
	s.Equal(134, created.WWSPoints)
	s.Equal(745.04, created.MaxLegalRent)
	s.Len(created.WWSDetails, 7)
	s.Equal([]string{"sink", "stove", "oven", "extractor", "fridge", "dishwasher"}, created.KitchenAmenities)
	s.Equal([]string{"toilet", "sink", "shower", "tub"}, created.BathroomAmenities)
	s.Require().Len(created.Photos, 2)
	s.True(strings.HasPrefix(created.Photos[0], "/uploads/woonkamer-"))
	s.True(strings.HasPrefix(created.Photos[1], "/uploads/keuken-"))
	s.True(strings.HasSuffix(created.Photos[1], ".png"))

	for _, ref := range created.Photos {
		_, statErr := os.Stat(filepath.Join(s.UploadsDir, strings.TrimPrefix(ref, "/uploads/")))
		s.NoError(statErr, "photo %s should be stored", ref)
	}
}

func (s *HandlerTestSuite) TestCreateListing_JSON() {
	payload := map[string]interface{}{
		"title":             "Studio",
		"address":           "Damstraat 1",
		"description":       "Compact",
		"apartmentType":     "studio",
		"size":              30,
		"rooms":             1,
		"bedrooms":          0,
		"energyLabel":       "A",
		"woz":               200000,
		"kitchenAmenities":  []string{"sink"},
		"bathroomAmenities": []string{},
		"rentPrice":         800,
		"contactName":       "Anna",
		"contactEmail":      "anna@example.nl",
		"contactPhone":      "0612345678",
	}
	w := s.serve(NewJSONRequest(s.T(), http.MethodPost, "/api/listings", payload))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	created := decodeListing(s.T(), w.Body.Bytes())
	// 24 + 20 + 10 + 2 + 0 + 0 + 2
	s.Equal(58, created.WWSPoints)
	s.Equal(322.48, created.MaxLegalRent)
	s.Equal(listing.OutdoorSpaceNone, created.OutdoorSpaceType)
	s.Require().NotNil(created.ContactPhone)
	s.Equal("0612345678", *created.ContactPhone)
	s.NotNil(created.Photos)
}

func (s *HandlerTestSuite) TestCreateListing_AmenitiesAsJSONString() {
	fields := referenceFormFields()
	fields["kitchenAmenities"] = []string{`["sink","stove"]`}
	delete(fields, "bathroomAmenities")
	fields["bathroomAmenities[]"] = []string{"toilet", "shower"}

	req, err := CreateMultipartRequest(http.MethodPost, "/api/listings", fields, nil)
	s.Require().NoError(err)
	w := s.serve(req)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	created := decodeListing(s.T(), w.Body.Bytes())
	s.Equal([]string{"sink", "stove"}, created.KitchenAmenities)
	s.Equal([]string{"toilet", "shower"}, created.BathroomAmenities)
}

func (s *HandlerTestSuite) TestCreateListing_RejectsBadPhotoType() {
	files := []testFile{{Field: listing.PhotoField, Filename: "contract.pdf", Content: []byte("%PDF")}}
	req, err := CreateMultipartRequest(http.MethodPost, "/api/listings", referenceFormFields(), files)
	s.Require().NoError(err)

	w := s.serve(req)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(decodeMessage(s.T(), w.Body.Bytes()), "Only image files")

	all, err := s.ListingRepo.FindAllForSync(context.Background(), 0, 100)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *HandlerTestSuite) TestCreateListing_ValidationFailureRemovesPhotos() {
	fields := referenceFormFields()
	delete(fields, "contactEmail")
	files := []testFile{{Field: listing.PhotoField, Filename: "ok.webp", Content: []byte("webp")}}
	req, err := CreateMultipartRequest(http.MethodPost, "/api/listings", fields, files)
	s.Require().NoError(err)

	w := s.serve(req)
	s.Equal(http.StatusBadRequest, w.Code, w.Body.String())

	var body struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("VALIDATION_ERROR", body.Code)
	s.NotEmpty(body.Message)
	s.Contains(body.Details, "contactEmail")

	entries, err := os.ReadDir(s.UploadsDir)
	s.Require().NoError(err)
	s.Empty(entries, "photos of a rejected listing must be cleaned up")
}

func (s *HandlerTestSuite) TestCreateListing_NonNumericField() {
	fields := referenceFormFields()
	fields["size"] = []string{"large"}
	req, err := CreateMultipartRequest(http.MethodPost, "/api/listings", fields, nil)
	s.Require().NoError(err)

	w := s.serve(req)
	s.Equal(http.StatusBadRequest, w.Code)
	s.NotEmpty(decodeMessage(s.T(), w.Body.Bytes()))
}

func (s *HandlerTestSuite) TestCreateListing_BlankNumericFieldsRejected() {
	fields := referenceFormFields()
	fields["woz"] = []string{""}
	fields["bedrooms"] = []string{"  "}
	files := []testFile{{Field: listing.PhotoField, Filename: "gevel.jpg", Content: []byte("jpg")}}
	req, err := CreateMultipartRequest(http.MethodPost, "/api/listings", fields, files)
	s.Require().NoError(err)

	w := s.serve(req)
	s.Require().Equal(http.StatusBadRequest, w.Code, w.Body.String())

	var body struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("VALIDATION_ERROR", body.Code)
	s.Contains(body.Details, "woz")
	s.Contains(body.Details, "bedrooms")

	all, err := s.ListingRepo.FindAllForSync(context.Background(), 0, 100)
	s.Require().NoError(err)
	s.Empty(all)
	entries, err := os.ReadDir(s.UploadsDir)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *HandlerTestSuite) TestCreateListing_BlankAmenityRejected() {
	fields := referenceFormFields()
	fields["kitchenAmenities"] = []string{"sink", " ", "oven"}
	req, err := CreateMultipartRequest(http.MethodPost, "/api/listings", fields, nil)
	s.Require().NoError(err)

	w := s.serve(req)
	s.Equal(http.StatusBadRequest, w.Code, w.Body.String())
}

func (s *HandlerTestSuite) TestCreateListing_EmptyAmenityGroup() {
	fields := referenceFormFields()
	fields["kitchenAmenities"] = []string{""}
	req, err := CreateMultipartRequest(http.MethodPost, "/api/listings", fields, nil)
	s.Require().NoError(err)

	w := s.serve(req)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	created := decodeListing(s.T(), w.Body.Bytes())
	s.Empty(created.KitchenAmenities)
	s.Equal(122, created.WWSPoints) // reference minus the 12 kitchen points
}

func (s *HandlerTestSuite) TestGetListingByID() {
	created := s.createReference()

	w := s.serve(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/listings/%d", created.ID), nil))
	s.Require().Equal(http.StatusOK, w.Code)
	got := decodeListing(s.T(), w.Body.Bytes())
	s.Equal(created.ID, got.ID)
	s.Equal(created.KitchenAmenities, got.KitchenAmenities)
	s.Equal(created.BathroomAmenities, got.BathroomAmenities)

	w = s.serve(httptest.NewRequest(http.MethodGet, "/api/listings/99999", nil))
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Listing not found.", decodeMessage(s.T(), w.Body.Bytes()))

	w = s.serve(httptest.NewRequest(http.MethodGet, "/api/listings/abc", nil))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid listing ID format.", decodeMessage(s.T(), w.Body.Bytes()))
}

func (s *HandlerTestSuite) TestFindListings_FiltersAndDefaultVisibility() {
	cheap := s.createReference()

	fields := referenceFormFields()
	fields["rentPrice"] = []string{"1750"}
	fields["rooms"] = []string{"5"}
	req, err := CreateMultipartRequest(http.MethodPost, "/api/listings", fields, nil)
	s.Require().NoError(err)
	w := s.serve(req)
	s.Require().Equal(http.StatusCreated, w.Code)
	big := decodeListing(s.T(), w.Body.Bytes())

	s.Require().NoError(s.ListingRepo.UpdateStatus(context.Background(), big.ID, listing.StatusRented))

	list := func(query string) []listing.ListingResponse {
		w := s.serve(httptest.NewRequest(http.MethodGet, "/api/listings"+query, nil))
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		var out []listing.ListingResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	got := list("")
	s.Require().Len(got, 1)
	s.Equal(cheap.ID, got[0].ID)

	got = list("?status=rented&rooms=5%2B")
	s.Require().Len(got, 1)
	s.Equal(big.ID, got[0].ID)

	s.Empty(list("?priceRange=750-1000"))
	s.Len(list("?priceRange=1000-1500&search=PRINSENGRACHT&sort=price-desc"), 1)
	s.Len(list("?sort=not-a-sort"), 1)

	body := s.serve(httptest.NewRequest(http.MethodGet, "/api/listings", nil)).Body.String()
	s.True(strings.HasPrefix(body, "["))

	w = s.serve(httptest.NewRequest(http.MethodGet, "/api/listings?priceRange=cheap", nil))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(decodeMessage(s.T(), w.Body.Bytes()), "priceRange")
}

func (s *HandlerTestSuite) TestFindListings_EmptyIsArray() {
	w := s.serve(httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq("[]", w.Body.String())
}

func (s *HandlerTestSuite) TestUpdateListingStatus() {
	created := s.createReference()
	url := fmt.Sprintf("/api/listings/%d/status", created.ID)

	w := s.serve(NewJSONRequest(s.T(), http.MethodPatch, url, map[string]string{"status": "approved"}))
	s.Equal(http.StatusUnauthorized, w.Code, "admin key is required")

	req := NewJSONRequest(s.T(), http.MethodPatch, url, map[string]string{"status": "archived"})
	req.Header.Set(middleware.APIKeyHeader, testAdminKey)
	w = s.serve(req)
	s.Equal(http.StatusBadRequest, w.Code)

	stored, err := s.ListingRepo.FindByID(context.Background(), created.ID)
	s.Require().NoError(err)
	s.Equal(listing.StatusPending, stored.Status, "invalid status must not mutate the row")

	req = NewJSONRequest(s.T(), http.MethodPatch, url, map[string]string{"status": "approved"})
	req.Header.Set(middleware.AuthorizationHeader, "Bearer "+testAdminKey)
	w = s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(listing.StatusApproved, decodeListing(s.T(), w.Body.Bytes()).Status)

	req = NewJSONRequest(s.T(), http.MethodPatch, "/api/listings/424242/status", map[string]string{"status": "approved"})
	req.Header.Set(middleware.APIKeyHeader, testAdminKey)
	s.Equal(http.StatusNotFound, s.serve(req).Code)

	req = NewJSONRequest(s.T(), http.MethodPatch, "/api/listings/x/status", map[string]string{"status": "approved"})
	req.Header.Set(middleware.APIKeyHeader, testAdminKey)
	s.Equal(http.StatusBadRequest, s.serve(req).Code)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
