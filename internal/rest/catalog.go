package rest

import (
	"net/http"

	"ridefuture-be/internal/category"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/product"
	"ridefuture-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

// ListProducts handles GET /api/products/.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := utils.ParsePagination(q)

	filter := product.ListFilter{
		CategorySlug: q.Get("category"),
		Search:       q.Get("search"),
		Ordering:     product.Ordering(q.Get("ordering")),
		Limit:        p.PageSize,
		Offset:       p.Offset(),
	}
	if featured := queryBool(q, "featured"); featured != nil && *featured {
		filter.Featured = featured
	}

	prices := []struct {
		key string
		dst **decimal.Decimal
	}{
		{"price", &filter.Price},
		{"min_price", &filter.MinPrice},
		{"max_price", &filter.MaxPrice},
	}
	for _, pr := range prices {
		v, err := queryDecimal(q, pr.key)
		if err != nil {
			utils.WriteJSONFieldErrors(w, "validation failed", map[string]string{pr.key: "enter a number"}, http.StatusBadRequest)
			return
		}
		*pr.dst = v
	}

	res, err := h.products.ListProducts(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writePage(w, r, p, res)
}

// GetProduct handles GET /api/products/{slug}/.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetProduct(r.Context(), r.PathValue("slug"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

// SimilarProducts handles GET /api/products/{slug}/similar/.
func (h *Handler) SimilarProducts(w http.ResponseWriter, r *http.Request) {
	p := utils.ParsePagination(r.URL.Query())

	res, err := h.products.SimilarProducts(r.Context(), r.PathValue("slug"), p.PageSize, p.Offset())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writePage(w, r, p, res)
}

func writePage(w http.ResponseWriter, r *http.Request, p utils.Pagination, res *product.ListResult) {
	if p.Page > p.TotalPages(res.Total) {
		utils.WriteJSONError(w, "invalid page", http.StatusNotFound)
		return
	}
	utils.WriteJSON(w, http.StatusOK, newPage(r, p, res.Items, res.Total))
}

type categoryWithProducts struct {
	*category.Category
	Products []*product.Product `json:"products"`
}

// ListCategories handles GET /api/categories/. Each category carries its products.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ids := make([]int64, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	byCategory, err := h.products.ProductsByCategory(r.Context(), ids)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	out := make([]categoryWithProducts, 0, len(categories))
	for _, c := range categories {
		items := byCategory[c.ID]
		if items == nil {
			items = []*product.Product{}
		}
		out = append(out, categoryWithProducts{Category: c, Products: items})
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

// GetCategory handles GET /api/categories/{slug}/.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetCategory(r.Context(), r.PathValue("slug"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, c)
}

// CreateComment handles POST /api/comments/.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var input product.CreateCommentInput
	if !decodeJSON(w, r, &input) {
		return
	}

	c, err := h.products.CreateComment(r.Context(), userID, input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, c)
}

// CreateCategory handles POST /api/admin/categories/.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input category.CreateCategoryInput
	if !decodeJSON(w, r, &input) {
		return
	}

	c, err := h.categories.CreateCategory(r.Context(), input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, c)
}

// CreateCharacteristicType handles POST /api/admin/characteristic-types/.
func (h *Handler) CreateCharacteristicType(w http.ResponseWriter, r *http.Request) {
	var input category.CreateCharacteristicTypeInput
	if !decodeJSON(w, r, &input) {
		return
	}

	ct, err := h.categories.CreateCharacteristicType(r.Context(), input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, ct)
}

// CreateProduct handles POST /api/admin/products/.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input product.CreateProductInput
	if !decodeJSON(w, r, &input) {
		return
	}

	p, err := h.products.CreateProduct(r.Context(), input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/admin/products/{id}/.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product")
	if !ok {
		return
	}

	var input product.UpdateProductInput
	if !decodeJSON(w, r, &input) {
		return
	}

	p, err := h.products.UpdateProduct(r.Context(), id, input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/admin/products/{id}/.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product")
	if !ok {
		return
	}

	if err := h.products.DeleteProduct(r.Context(), id); err != nil {
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddCharacteristic handles POST /api/admin/products/{id}/characteristics/.
func (h *Handler) AddCharacteristic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product")
	if !ok {
		return
	}

	var input product.AddCharacteristicInput
	if !decodeJSON(w, r, &input) {
		return
	}

	c, err := h.products.AddCharacteristic(r.Context(), id, input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, c)
}

// UploadGalleryImage handles POST /api/admin/products/{id}/gallery/ as
// multipart form data with an "image" file and an optional "caption".
func (h *Handler) UploadGalleryImage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(zap.String("handler", "UploadGalleryImage"))

	id, ok := pathID(w, r, "product")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		log.Warn("invalid multipart form", zap.Error(err))
		utils.WriteJSONError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.WriteJSONFieldErrors(w, "validation failed", map[string]string{"image": "no file was submitted"}, http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, err := h.products.UploadGalleryImage(r.Context(), id, header.Filename, r.FormValue("caption"), file)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, img)
}

// DeleteGalleryImage handles DELETE /api/admin/gallery/{id}/.
func (h *Handler) DeleteGalleryImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "image")
	if !ok {
		return
	}

	if err := h.products.DeleteGalleryImage(r.Context(), id); err != nil {
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
