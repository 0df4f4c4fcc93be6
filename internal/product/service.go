package product

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"ridefuture-be/internal/apperror"
	"ridefuture-be/internal/category"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CategoryLookup is the slice of the category service the catalog needs.
type CategoryLookup interface {
	GetCategoryByID(ctx context.Context, id int64) (*category.Category, error)
	GetCharacteristicType(ctx context.Context, id int64) (*category.CharacteristicType, error)
}

type Service interface {
	ListProducts(ctx context.Context, filter ListFilter) (*ListResult, error)
	GetProduct(ctx context.Context, slug string) (*Product, error)
	GetProductByID(ctx context.Context, id int64) (*Product, error)
	SimilarProducts(ctx context.Context, slug string, limit, offset int) (*ListResult, error)
	ProductsByCategory(ctx context.Context, categoryIDs []int64) (map[int64][]*Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*Product, error)

	CreateProduct(ctx context.Context, input CreateProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	AddCharacteristic(ctx context.Context, productID int64, input AddCharacteristicInput) (*Characteristic, error)
	UploadGalleryImage(ctx context.Context, productID int64, filename, caption string, r io.Reader) (*GalleryImage, error)
	DeleteGalleryImage(ctx context.Context, id int64) error

	CreateComment(ctx context.Context, userID int64, input CreateCommentInput) (*Comment, error)
}

type service struct {
	repo       Repository
	categories CategoryLookup
	media      MediaStore
}

func NewService(repo Repository, categories CategoryLookup, media MediaStore) Service {
	return &service{repo: repo, categories: categories, media: media}
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) (*ListResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListProducts"),
	)

	start := time.Now()

	if _, ok := orderingClauses[filter.Ordering]; !ok {
		filter.Ordering = OrderCreatedAtDesc
	}
	filter.Search = strings.TrimSpace(filter.Search)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error("failed to list products", zap.Error(err))
		return nil, err
	}

	if err := s.attachDetails(ctx, items); err != nil {
		log.Error("failed to attach product details", zap.Error(err))
		return nil, err
	}

	log.Info("ListProducts success",
		zap.Int("returned", len(items)),
		zap.Int("total", total),
		zap.Duration("duration", time.Since(start)),
	)

	return &ListResult{Items: items, Total: total}, nil
}

// GetProduct loads a product by slug with gallery, characteristics and comments.
func (s *service) GetProduct(ctx context.Context, slug string) (*Product, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.withComments(ctx, p)
}

func (s *service) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withComments(ctx, p)
}

func (s *service) withComments(ctx context.Context, p *Product) (*Product, error) {
	if err := s.attachDetails(ctx, []*Product{p}); err != nil {
		return nil, err
	}

	comments, err := s.repo.GetComments(ctx, p.ID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load comments", zap.Int64("product_id", p.ID), zap.Error(err))
		return nil, err
	}
	p.Comments = comments
	return p, nil
}

func (s *service) SimilarProducts(ctx context.Context, slug string, limit, offset int) (*ListResult, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	return s.ListProducts(ctx, ListFilter{
		CategoryIDs: []int64{p.Category.ID},
		ExcludeID:   p.ID,
		Ordering:    OrderCreatedAtDesc,
		Limit:       limit,
		Offset:      offset,
	})
}

func (s *service) ProductsByCategory(ctx context.Context, categoryIDs []int64) (map[int64][]*Product, error) {
	result := make(map[int64][]*Product, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return result, nil
	}

	list, err := s.ListProducts(ctx, ListFilter{CategoryIDs: categoryIDs, Ordering: OrderCreatedAtDesc})
	if err != nil {
		return nil, err
	}

	for _, p := range list.Items {
		result[p.Category.ID] = append(result[p.Category.ID], p)
	}
	return result, nil
}

func (s *service) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*Product, error) {
	byID, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]*Product, 0, len(byID))
	for _, p := range byID {
		items = append(items, p)
	}
	if err := s.attachDetails(ctx, items); err != nil {
		return nil, err
	}
	return byID, nil
}

func (s *service) attachDetails(ctx context.Context, items []*Product) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}

	gallery, err := s.repo.GetGallery(ctx, ids)
	if err != nil {
		return err
	}
	characteristics, err := s.repo.GetCharacteristics(ctx, ids)
	if err != nil {
		return err
	}

	for _, p := range items {
		p.Gallery = []GalleryImage{}
		for _, g := range gallery[p.ID] {
			g.Image = s.media.URL(g.Path)
			p.Gallery = append(p.Gallery, g)
		}
		if c := characteristics[p.ID]; c != nil {
			p.Characteristics = c
		} else {
			p.Characteristics = []Characteristic{}
		}
	}
	return nil
}

func validatePricing(vErr *apperror.ValidationError, price, discount *decimal.Decimal, stock *int) {
	if price != nil && price.IsNegative() {
		vErr.Add("price", "must be zero or greater")
	}
	if discount != nil && (discount.IsNegative() || discount.GreaterThan(hundred)) {
		vErr.Add("discount_percentage", "must be between 0 and 100")
	}
	if stock != nil && *stock < 0 {
		vErr.Add("stock", "must be zero or greater")
	}
}

func (s *service) checkCategory(ctx context.Context, vErr *apperror.ValidationError, id int64) error {
	if _, err := s.categories.GetCategoryByID(ctx, id); err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			vErr.Add("category_id", "unknown category")
			return nil
		}
		return err
	}
	return nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateProduct"),
		zap.String("name", input.Name),
	)

	vErr := &apperror.ValidationError{}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		vErr.Add("name", "this field is required")
	}
	if input.Slug == "" {
		input.Slug = utils.Slugify(input.Name)
	} else {
		input.Slug = utils.Slugify(input.Slug)
	}
	if input.Slug == "" && input.Name != "" {
		vErr.Add("slug", "cannot derive a slug from the name")
	}

	validatePricing(vErr, &input.Price, &input.DiscountPercentage, &input.Stock)

	if input.CategoryID <= 0 {
		vErr.Add("category_id", "this field is required")
	} else if err := s.checkCategory(ctx, vErr, input.CategoryID); err != nil {
		return nil, err
	}

	if err := vErr.OrNil(); err != nil {
		log.Warn("validation failed", zap.Error(err))
		return nil, err
	}

	p, err := s.repo.Create(ctx, input)
	if err != nil {
		log.Error("failed to create product", zap.Error(err))
		return nil, err
	}

	log.Info("CreateProduct success", zap.Int64("product_id", p.ID))
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateProduct"),
		zap.Int64("product_id", id),
	)

	if !input.HasChanges() {
		return nil, apperror.NewValidation("body", "no fields to update")
	}

	vErr := &apperror.ValidationError{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		input.Name = &name
		if name == "" {
			vErr.Add("name", "cannot be blank")
		}
	}
	validatePricing(vErr, input.Price, input.DiscountPercentage, input.Stock)
	if input.CategoryID != nil {
		if err := s.checkCategory(ctx, vErr, *input.CategoryID); err != nil {
			return nil, err
		}
	}
	if err := vErr.OrNil(); err != nil {
		log.Warn("validation failed", zap.Error(err))
		return nil, err
	}

	if err := s.repo.Update(ctx, id, input); err != nil {
		log.Error("failed to update product", zap.Error(err))
		return nil, err
	}

	log.Info("UpdateProduct success")
	return s.GetProductByID(ctx, id)
}

// DeleteProduct removes the row first and then its gallery folder.
func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "DeleteProduct"),
		zap.Int64("product_id", id),
	)

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		log.Warn("failed to delete product", zap.Error(err))
		return err
	}

	if err := s.media.RemoveAll(GalleryDir(p.Slug)); err != nil {
		log.Warn("failed to remove gallery folder", zap.String("slug", p.Slug), zap.Error(err))
	}

	log.Info("DeleteProduct success")
	return nil
}

func (s *service) AddCharacteristic(ctx context.Context, productID int64, input AddCharacteristicInput) (*Characteristic, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddCharacteristic"),
		zap.Int64("product_id", productID),
	)

	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	t, err := s.categories.GetCharacteristicType(ctx, input.CharacteristicTypeID)
	if err != nil {
		if errors.Is(err, category.ErrCharacteristicTypeNotFound) {
			return nil, apperror.NewValidation("characteristic_type_id", "unknown characteristic type")
		}
		return nil, err
	}

	input.Value = strings.TrimSpace(input.Value)
	if err := t.ValidateValue(input.Value); err != nil {
		log.Warn("characteristic value rejected", zap.String("data_type", string(t.DataType)), zap.Error(err))
		return nil, err
	}

	c, err := s.repo.AddCharacteristic(ctx, productID, input)
	if err != nil {
		log.Error("failed to add characteristic", zap.Error(err))
		return nil, err
	}

	log.Info("AddCharacteristic success", zap.Int64("characteristic_id", c.ID))
	return c, nil
}

func (s *service) UploadGalleryImage(ctx context.Context, productID int64, filename, caption string, r io.Reader) (*GalleryImage, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UploadGalleryImage"),
		zap.Int64("product_id", productID),
	)

	if strings.TrimSpace(filename) == "" {
		return nil, apperror.NewValidation("image", "this field is required")
	}

	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	relPath := GalleryPath(p.Slug, filename)
	if err := s.media.Save(ctx, relPath, r); err != nil {
		log.Error("failed to store image", zap.String("path", relPath), zap.Error(err))
		return nil, err
	}

	g, err := s.repo.AddGalleryImage(ctx, productID, relPath, strings.TrimSpace(caption))
	if err != nil {
		if rmErr := s.media.Remove(relPath); rmErr != nil {
			log.Warn("failed to remove orphaned image", zap.String("path", relPath), zap.Error(rmErr))
		}
		return nil, err
	}

	g.Image = s.media.URL(g.Path)
	log.Info("UploadGalleryImage success", zap.Int64("image_id", g.ID))
	return g, nil
}

func (s *service) DeleteGalleryImage(ctx context.Context, id int64) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "DeleteGalleryImage"),
		zap.Int64("image_id", id),
	)

	g, err := s.repo.GetGalleryImage(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteGalleryImage(ctx, id); err != nil {
		return err
	}

	if err := s.media.Remove(g.Path); err != nil {
		log.Warn("failed to remove image file", zap.String("path", g.Path), zap.Error(err))
	}
	if dir := path.Dir(g.Path); dir != "." {
		if err := s.media.RemoveDirIfEmpty(dir); err != nil {
			log.Warn("failed to prune gallery folder", zap.String("dir", dir), zap.Error(err))
		}
	}

	log.Info("DeleteGalleryImage success")
	return nil
}

func (s *service) CreateComment(ctx context.Context, userID int64, input CreateCommentInput) (*Comment, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateComment"),
		zap.Int64("user_id", userID),
		zap.Int64("product_id", input.ProductID),
	)

	vErr := &apperror.ValidationError{}
	if input.ProductID <= 0 {
		vErr.Add("product", "this field is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		vErr.Add("rating", "must be between 1 and 5")
	}
	input.Comment = strings.TrimSpace(input.Comment)
	if input.Comment == "" {
		vErr.Add("comment", "this field is required")
	}
	if err := vErr.OrNil(); err != nil {
		log.Warn("validation failed", zap.Error(err))
		return nil, err
	}

	if _, err := s.repo.GetByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, apperror.NewValidation("product", "unknown product")
		}
		return nil, err
	}

	c, err := s.repo.CreateComment(ctx, userID, input)
	if err != nil {
		log.Warn("failed to create comment", zap.Error(err))
		return nil, err
	}

	log.Info("CreateComment success", zap.Int64("comment_id", c.ID))
	return c, nil
}
