// File: internal/listing/handler.go
package listing

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"wws_listings_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// PhotoField is the multipart field name carrying listing photos.
const PhotoField = "photos"

// PhotoStore validates and stores uploaded photos and returns their public references.
type PhotoStore interface {
	SavePhotos(files []*multipart.FileHeader) ([]string, error)
	DeletePublicRefs(refs []string)
}

// Handler struct holds dependencies for listing handlers.
type Handler struct {
	service            Service
	photos             PhotoStore
	logger             *zap.Logger
	maxMultipartMemory int64
}

// NewHandler creates a new listing handler. maxMultipartMemory bounds the part
// of a multipart body kept in memory; the rest spills to temporary files.
func NewHandler(service Service, photos PhotoStore, logger *zap.Logger, maxMultipartMemory int64) *Handler {
	if maxMultipartMemory <= 0 {
		maxMultipartMemory = 32 << 20
	}
	return &Handler{
		service:            service,
		photos:             photos,
		logger:             logger,
		maxMultipartMemory: maxMultipartMemory,
	}
}

// RegisterRoutes sets up the routes for listing operations. adminMW guards status changes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, adminMW gin.HandlerFunc) {
	listingGroup := router.Group("/listings")
	{
		listingGroup.GET("", h.findListings)
		listingGroup.GET("/:id", h.getListingByID)
		listingGroup.POST("", h.createListing)

		adminGroup := listingGroup.Group("")
		if adminMW != nil {
			adminGroup.Use(adminMW)
		}
		adminGroup.PATCH("/:id/status", h.updateListingStatus)
	}
}

func (h *Handler) createListing(c *gin.Context) {
	var req CreateListingRequest
	var files []*multipart.FileHeader

	if strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm) {
		if err := c.Request.ParseMultipartForm(h.maxMultipartMemory); err != nil {
			h.logger.Warn("Create listing: Failed to parse multipart form", zap.Error(err))
			common.RespondWithError(c, common.ErrBadRequest.WithMessage("Invalid multipart form: "+err.Error()))
			return
		}
		if blank := blankNumberFields(c.Request.MultipartForm); len(blank) > 0 {
			common.RespondWithError(c, common.NewValidationAPIError(blank))
			return
		}
		if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
			h.respondBindError(c, "Invalid form data", err)
			return
		}
		form := c.Request.MultipartForm
		req.KitchenAmenities = formTags(form, "kitchenAmenities")
		req.BathroomAmenities = formTags(form, "bathroomAmenities")
		files = form.File[PhotoField]
	} else if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, "Invalid request body", err)
		return
	}

	var photoRefs []string
	if len(files) > 0 {
		if h.photos == nil {
			common.RespondWithError(c, common.ErrBadRequest.WithMessage("Photo uploads are not enabled."))
			return
		}
		refs, err := h.photos.SavePhotos(files)
		if err != nil {
			h.logger.Warn("Create listing: Photo upload rejected", zap.Error(err), zap.Int("files", len(files)))
			common.RespondWithError(c, err)
			return
		}
		photoRefs = refs
	}

	listing, err := h.service.CreateListing(c.Request.Context(), req, photoRefs)
	if err != nil {
		if len(photoRefs) > 0 {
			h.photos.DeletePublicRefs(photoRefs)
		}
		common.RespondWithError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusCreated, ToListingResponse(listing))
}

func (h *Handler) getListingByID(c *gin.Context) {
	listingID, ok := parseListingID(c)
	if !ok {
		return
	}

	listing, err := h.service.GetListingByID(c.Request.Context(), listingID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, ToListingResponse(listing))
}

func (h *Handler) findListings(c *gin.Context) {
	var query ListingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		common.RespondWithError(c, common.ErrValidation.WithMessage("Invalid query parameters: "+err.Error()))
		return
	}

	filter, err := ParseListingQuery(query)
	if err != nil {
		var fe *FilterError
		if errors.As(err, &fe) {
			common.RespondWithError(c, common.ErrValidation.
				WithMessage("Invalid value for query parameter "+fe.Param+".").
				WithDetails(map[string]string{fe.Param: fe.Error()}))
			return
		}
		common.RespondWithError(c, err)
		return
	}

	listings, err := h.service.FindListings(c.Request.Context(), filter)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, ToListingResponses(listings))
}

func (h *Handler) updateListingStatus(c *gin.Context) {
	listingID, ok := parseListingID(c)
	if !ok {
		return
	}

	var req UpdateListingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, "Invalid request body", err)
		return
	}

	listing, err := h.service.UpdateListingStatus(c.Request.Context(), listingID, req.Status)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, ToListingResponse(listing))
}

func (h *Handler) respondBindError(c *gin.Context, prefix string, err error) {
	h.logger.Warn(prefix, zap.Error(err), zap.String("path", c.Request.URL.Path))
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
		return
	}
	common.RespondWithError(c, common.ErrValidation.WithMessage(prefix+": "+err.Error()))
}

// parseListingID reads the :id path parameter and responds with 400 when it is not an integer.
func parseListingID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil {
		common.RespondWithError(c, common.ErrValidation.WithMessage("Invalid listing ID format."))
		return 0, false
	}
	return uint(id), true
}

// requiredNumberFields are the numeric form fields that must carry a value.
// Form binding turns an empty value into zero, so blanks are caught before binding.
var requiredNumberFields = []string{"size", "rooms", "bedrooms", "woz", "rentPrice"}

func blankNumberFields(form *multipart.Form) map[string]string {
	details := map[string]string{}
	for _, name := range requiredNumberFields {
		values, present := form.Value[name]
		if !present {
			continue
		}
		if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
			details[name] = fmt.Sprintf("The %s field is required.", name)
		}
	}
	return details
}

// formTags collects a multi-valued form field. Clients send checkbox groups as
// repeated "name" or "name[]" fields, or as a single JSON array string.
func formTags(form *multipart.Form, name string) []string {
	values := append([]string{}, form.Value[name]...)
	values = append(values, form.Value[name+"[]"]...)

	if len(values) == 1 && strings.TrimSpace(values[0]) == "" {
		// A lone empty field is how an unchecked group is submitted.
		return []string{}
	}
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var decoded []string
		if err := json.Unmarshal([]byte(values[0]), &decoded); err == nil {
			return decoded
		}
	}
	return values
}
