package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ridefuture-be/internal/db"
	"ridefuture-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	ListCategories(ctx context.Context) ([]*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*Category, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*Category, error)
	GetCharacteristicsByCategoryIDs(ctx context.Context, categoryIDs []int64) (map[int64][]*CharacteristicType, error)
	GetCharacteristicType(ctx context.Context, id int64) (*CharacteristicType, error)
	CreateCharacteristicType(ctx context.Context, input CreateCharacteristicTypeInput) (*CharacteristicType, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const categoryColumns = `c.id, c.name, c.slug, c.icon, c.long_term_guarantee, c.created_at, c.updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*Category, error) {
	var c Category
	var icon sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &icon, &c.LongTermGuarantee, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if icon.Valid {
		c.Icon = &icon.String
	}
	return &c, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]*Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListCategories"),
	)

	query := `SELECT ` + categoryColumns + ` FROM categories c ORDER BY c.name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("DB query failed ListCategories", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	categories := []*Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			log.Error("Row scan failed", zap.Error(err))
			return nil, err
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		log.Error("Rows iteration failed", zap.Error(err))
		return nil, err
	}

	return categories, nil
}

func (r *repository) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories c WHERE c.slug = $1`

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetCategoryBySlug failed", zap.String("slug", slug), zap.Error(err))
		return nil, fmt.Errorf("get category by slug: %w", err)
	}
	return c, nil
}

func (r *repository) GetCategoryByID(ctx context.Context, id int64) (*Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories c WHERE c.id = $1`

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetCategoryByID failed", zap.Int64("category_id", id), zap.Error(err))
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	return c, nil
}

func (r *repository) CreateCategory(ctx context.Context, input CreateCategoryInput) (*Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateCategory"),
		zap.String("slug", input.Slug),
	)

	query := `
		INSERT INTO categories (name, slug, icon, long_term_guarantee)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, slug, icon, long_term_guarantee, created_at, updated_at
	`

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, input.Name, input.Slug, input.Icon, input.LongTermGuarantee))
	if err != nil {
		if db.IsUniqueViolation(err) {
			log.Warn("category already exists")
			return nil, ErrCategoryExists
		}
		log.Error("CreateCategory DB query failed", zap.Error(err))
		return nil, fmt.Errorf("create category failed: %w", err)
	}

	log.Info("CreateCategory success", zap.Int64("category_id", c.ID))
	return c, nil
}

func (r *repository) GetCharacteristicsByCategoryIDs(
	ctx context.Context,
	categoryIDs []int64,
) (map[int64][]*CharacteristicType, error) {

	result := make(map[int64][]*CharacteristicType)
	if len(categoryIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(categoryIDs))
	args := make([]interface{}, len(categoryIDs))
	for i, id := range categoryIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT cct.category_id, t.id, t.name, t.data_type, t.suffix
		FROM category_characteristic_types cct
		JOIN characteristic_types t ON t.id = cct.characteristic_type_id
		WHERE cct.category_id IN (%s)
		ORDER BY t.name ASC`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromCtx(ctx).Error("GetCharacteristicsByCategoryIDs failed", zap.Error(err))
		return nil, fmt.Errorf("query characteristic types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var categoryID int64
		var t CharacteristicType
		var suffix sql.NullString
		if err := rows.Scan(&categoryID, &t.ID, &t.Name, &t.DataType, &suffix); err != nil {
			return nil, fmt.Errorf("scan characteristic type: %w", err)
		}
		if suffix.Valid {
			t.Suffix = &suffix.String
		}
		result[categoryID] = append(result[categoryID], &t)
	}

	return result, rows.Err()
}

func (r *repository) GetCharacteristicType(ctx context.Context, id int64) (*CharacteristicType, error) {
	query := `
		SELECT t.id, t.name, t.data_type, t.suffix,
			COALESCE(ARRAY_AGG(cct.category_id) FILTER (WHERE cct.category_id IS NOT NULL), '{}')
		FROM characteristic_types t
		LEFT JOIN category_characteristic_types cct ON cct.characteristic_type_id = t.id
		WHERE t.id = $1
		GROUP BY t.id
	`

	var t CharacteristicType
	var suffix sql.NullString
	var categoryIDs pq.Int64Array

	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.DataType, &suffix, &categoryIDs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCharacteristicTypeNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetCharacteristicType failed", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get characteristic type: %w", err)
	}

	if suffix.Valid {
		t.Suffix = &suffix.String
	}
	t.CategoryIDs = []int64(categoryIDs)
	return &t, nil
}

// CreateCharacteristicType inserts the type and its category links in one transaction.
func (r *repository) CreateCharacteristicType(
	ctx context.Context,
	input CreateCharacteristicTypeInput,
) (*CharacteristicType, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateCharacteristicType"),
		zap.String("name", input.Name),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin tx", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	t := CharacteristicType{
		Name:        input.Name,
		DataType:    input.DataType,
		Suffix:      input.Suffix,
		CategoryIDs: input.CategoryIDs,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO characteristic_types (name, data_type, suffix)
		VALUES ($1, $2, $3)
		RETURNING id`,
		input.Name, input.DataType, input.Suffix,
	).Scan(&t.ID)
	if err != nil {
		log.Error("insert characteristic type failed", zap.Error(err))
		return nil, fmt.Errorf("insert characteristic type: %w", err)
	}

	if len(input.CategoryIDs) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO category_characteristic_types (category_id, characteristic_type_id)
			SELECT UNNEST($1::bigint[]), $2`,
			pq.Array(input.CategoryIDs), t.ID,
		)
		if err != nil {
			log.Error("link characteristic type failed", zap.Error(err))
			return nil, fmt.Errorf("link characteristic type: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return nil, err
	}

	log.Info("CreateCharacteristicType success", zap.Int64("id", t.ID))
	return &t, nil
}
