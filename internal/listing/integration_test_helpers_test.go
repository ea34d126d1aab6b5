package listing_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"testing"

	"wws_listings_backend/internal/listing"

	"github.com/stretchr/testify/require"
)

// testFile is one file part of a multipart request.
type testFile struct {
	Field    string
	Filename string
	Content  []byte
}

// CreateMultipartRequest constructs an HTTP request with multipart/form-data.
// Repeated values of a field are written as separate parts, in order.
func CreateMultipartRequest(method, url string, params map[string][]string, files []testFile) (*http.Request, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, val := range params[key] {
			if err := writer.WriteField(key, val); err != nil {
				return nil, fmt.Errorf("failed to write field %s: %w", key, err)
			}
		}
	}

	for _, f := range files {
		part, err := writer.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file for %s: %w", f.Filename, err)
		}
		if _, err := io.Copy(part, bytes.NewReader(f.Content)); err != nil {
			return nil, fmt.Errorf("failed to copy file content for %s: %w", f.Filename, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

// NewJSONRequest marshals payload into a request body.
func NewJSONRequest(t *testing.T, method, url string, payload interface{}) *http.Request {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// referenceFormFields is the form submission for the reference listing
// (75 m², label B, WOZ 450000, 6 + 4 amenities, 5 m² balcony, 3 rooms).
func referenceFormFields() map[string][]string {
	return map[string][]string{
		"title":             {"Licht appartement"},
		"address":           {"Prinsengracht 1, Amsterdam"},
		"description":       {"Ruim en licht."},
		"apartmentType":     {"appartement"},
		"size":              {"75"},
		"rooms":             {"3"},
		"bedrooms":          {"2"},
		"energyLabel":       {"B"},
		"woz":               {"450000"},
		"kitchenAmenities":  {"sink", "stove", "oven", "extractor", "fridge", "dishwasher"},
		"bathroomAmenities": {"toilet", "sink", "shower", "tub"},
		"outdoorSpaceType":  {"balcony"},
		"outdoorSpaceSize":  {"5"},
		"rentPrice":         {"1200"},
		"contactName":       {"Jan de Vries"},
		"contactEmail":      {"jan@example.nl"},
	}
}

func decodeListing(t *testing.T, body []byte) listing.ListingResponse {
	t.Helper()
	var resp listing.ListingResponse
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	return resp
}

func decodeMessage(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	return resp.Message
}
