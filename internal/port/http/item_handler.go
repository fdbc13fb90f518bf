package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const imagesFormField = "images"

type ItemHandler struct {
	catalog        service.CatalogService
	moderation     service.ModerationService
	log            logger.Logger
	maxUploadBytes int64
}

func NewItemHandler(catalog service.CatalogService, moderation service.ModerationService, log logger.Logger, maxUploadBytes int64) *ItemHandler {
	return &ItemHandler{
		catalog:        catalog,
		moderation:     moderation,
		log:            log.Named("item_handler"),
		maxUploadBytes: maxUploadBytes,
	}
}

type itemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    entity.Category `json:"category"`
	Price       decimal.Decimal `json:"price"`
}

func (req itemRequest) input() service.ItemInput {
	return service.ItemInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
	}
}

func (h *ItemHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.catalog.ListAvailable(r.Context(), q.Get("q"), entity.Category(q.Get("category")))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, entity.Categories())
}

func (h *ItemHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) HandleMyItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	items, err := h.catalog.ListBySeller(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleCreateItem accepts either a JSON body or a multipart form carrying
// the item fields plus any number of "images" files.
func (h *ItemHandler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var (
		req    itemRequest
		images []service.ImageUpload
	)
	if isMultipart(r) {
		if !parseMultipart(w, r, h.maxUploadBytes) {
			return
		}
		price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
		if err != nil {
			badRequest(w, "price must be a decimal number")
			return
		}
		req = itemRequest{
			Name:        r.FormValue("name"),
			Description: r.FormValue("description"),
			Category:    entity.Category(r.FormValue("category")),
			Price:       price,
		}
		if images, err = readImages(r.MultipartForm, imagesFormField); err != nil {
			badRequest(w, err.Error())
			return
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.catalog.CreateItem(r.Context(), userID, req.input(), images)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.catalog.UpdateItem(r.Context(), userID, chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.catalog.DeleteItem(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) HandleAddImages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}
	images, err := readImages(r.MultipartForm, imagesFormField)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	item, err := h.catalog.AddImages(r.Context(), userID, chi.URLParam(r, "id"), images)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type statusRequest struct {
	Status entity.ItemStatus `json:"status"`
}

// HandleSetStatus is the moderator override for the item state machine;
// sellers move items through the settlement endpoints.
func (h *ItemHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	allowed, err := h.moderation.CanModerate(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if !allowed {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "moderator role required"})
		return
	}
	item, err := h.catalog.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func readImages(form *multipart.Form, field string) ([]service.ImageUpload, error) {
	if form == nil {
		return nil, nil
	}
	headers := form.File[field]
	images := make([]service.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		data, err := readFile(fh)
		if err != nil {
			return nil, fmt.Errorf("could not read image %q: %w", fh.Filename, err)
		}
		images = append(images, service.ImageUpload{FileName: fh.Filename, Data: data})
	}
	return images, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
