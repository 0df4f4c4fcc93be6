package category

import (
	"context"
	"errors"
	"strings"

	"ridefuture-be/internal/apperror"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	ListCategories(ctx context.Context) ([]*Category, error)
	GetCategory(ctx context.Context, slug string) (*Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*Category, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*Category, error)
	GetCharacteristicType(ctx context.Context, id int64) (*CharacteristicType, error)
	CreateCharacteristicType(ctx context.Context, input CreateCharacteristicTypeInput) (*CharacteristicType, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// ListCategories returns every category with its characteristic types attached.
func (s *service) ListCategories(ctx context.Context) ([]*Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListCategories"),
	)

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		log.Error("failed to list categories", zap.Error(err))
		return nil, err
	}

	if len(categories) == 0 {
		return []*Category{}, nil
	}

	ids := make([]int64, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}

	characteristics, err := s.repo.GetCharacteristicsByCategoryIDs(ctx, ids)
	if err != nil {
		log.Error("failed to get characteristics by category ids", zap.Error(err))
		return nil, err
	}

	for _, c := range categories {
		c.Characteristics = nonNil(characteristics[c.ID])
	}

	log.Info("ListCategories success", zap.Int("count", len(categories)))
	return categories, nil
}

func (s *service) GetCategory(ctx context.Context, slug string) (*Category, error) {
	c, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.attachCharacteristics(ctx, c)
}

func (s *service) GetCategoryByID(ctx context.Context, id int64) (*Category, error) {
	c, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.attachCharacteristics(ctx, c)
}

func (s *service) attachCharacteristics(ctx context.Context, c *Category) (*Category, error) {
	characteristics, err := s.repo.GetCharacteristicsByCategoryIDs(ctx, []int64{c.ID})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get characteristics", zap.Int64("category_id", c.ID), zap.Error(err))
		return nil, err
	}
	c.Characteristics = nonNil(characteristics[c.ID])
	return c, nil
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateCategory"),
		zap.String("name", input.Name),
	)

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		log.Warn("validation failed: empty name")
		return nil, apperror.NewValidation("name", "this field is required")
	}

	if input.Slug == "" {
		input.Slug = utils.Slugify(input.Name)
	} else {
		input.Slug = utils.Slugify(input.Slug)
	}
	if input.Slug == "" {
		return nil, apperror.NewValidation("slug", "cannot derive a slug from the name")
	}

	c, err := s.repo.CreateCategory(ctx, input)
	if err != nil {
		log.Error("failed to create category", zap.Error(err))
		return nil, err
	}
	c.Characteristics = []*CharacteristicType{}

	log.Info("CreateCategory success", zap.Int64("category_id", c.ID))
	return c, nil
}

func (s *service) GetCharacteristicType(ctx context.Context, id int64) (*CharacteristicType, error) {
	return s.repo.GetCharacteristicType(ctx, id)
}

func (s *service) CreateCharacteristicType(ctx context.Context, input CreateCharacteristicTypeInput) (*CharacteristicType, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateCharacteristicType"),
		zap.String("name", input.Name),
	)

	vErr := &apperror.ValidationError{}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		vErr.Add("name", "this field is required")
	}
	if input.DataType == "" {
		input.DataType = DataTypeString
	}
	if !input.DataType.Valid() {
		vErr.Add("data_type", "must be one of string, integer, float, boolean")
	}
	if err := vErr.OrNil(); err != nil {
		log.Warn("validation failed", zap.Error(err))
		return nil, err
	}

	for _, id := range input.CategoryIDs {
		if _, err := s.repo.GetCategoryByID(ctx, id); err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return nil, apperror.NewValidation("categories", "unknown category id")
			}
			return nil, err
		}
	}

	t, err := s.repo.CreateCharacteristicType(ctx, input)
	if err != nil {
		log.Error("failed to create characteristic type", zap.Error(err))
		return nil, err
	}

	log.Info("CreateCharacteristicType success", zap.Int64("id", t.ID))
	return t, nil
}

func nonNil(in []*CharacteristicType) []*CharacteristicType {
	if in == nil {
		return []*CharacteristicType{}
	}
	return in
}
