package product

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
	List(ctx context.Context, filter ListFilter) ([]*Product, int, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*Product, error)
	Create(ctx context.Context, input CreateProductInput) (*Product, error)
	Update(ctx context.Context, id int64, input UpdateProductInput) error
	Delete(ctx context.Context, id int64) error

	GetGallery(ctx context.Context, productIDs []int64) (map[int64][]GalleryImage, error)
	AddGalleryImage(ctx context.Context, productID int64, path, caption string) (*GalleryImage, error)
	GetGalleryImage(ctx context.Context, id int64) (*GalleryImage, error)
	DeleteGalleryImage(ctx context.Context, id int64) error

	GetCharacteristics(ctx context.Context, productIDs []int64) (map[int64][]Characteristic, error)
	AddCharacteristic(ctx context.Context, productID int64, input AddCharacteristicInput) (*Characteristic, error)

	GetComments(ctx context.Context, productID int64) ([]Comment, error)
	CreateComment(ctx context.Context, userID int64, input CreateCommentInput) (*Comment, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productSelect = `
	SELECT
		p.id, p.name, p.slug, p.description, p.price, p.discount_percentage,
		p.stock, p.is_featured, p.created_at, p.updated_at,
		c.id, c.name, c.slug, c.long_term_guarantee,
		(SELECT AVG(pc.rating)::float8 FROM product_comments pc WHERE pc.product_id = p.id)
	FROM products p
	JOIN categories c ON c.id = p.category_id`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	var avg sql.NullFloat64

	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.DiscountPercentage,
		&p.Stock, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt,
		&p.Category.ID, &p.Category.Name, &p.Category.Slug, &p.Category.LongTermGuarantee,
		&avg,
	)
	if err != nil {
		return nil, err
	}

	if avg.Valid {
		p.AverageRating = &avg.Float64
	}
	p.DiscountedPrice = DiscountedPrice(p.Price, p.DiscountPercentage)
	p.Gallery = []GalleryImage{}
	p.Characteristics = []Characteristic{}
	return &p, nil
}

func buildListWhere(filter ListFilter) (string, []any) {
	where := []string{}
	args := []any{}

	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.CategorySlug != "" {
		add("c.slug = $%d", filter.CategorySlug)
	}
	if len(filter.CategoryIDs) > 0 {
		add("p.category_id = ANY($%d)", pq.Array(filter.CategoryIDs))
	}
	if filter.Featured != nil {
		add("p.is_featured = $%d", *filter.Featured)
	}
	if filter.Price != nil {
		add("p.price = $%d", *filter.Price)
	}
	if filter.MinPrice != nil {
		add("p.price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("p.price <= $%d", *filter.MaxPrice)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", n, n))
	}
	if filter.ExcludeID > 0 {
		add("p.id <> $%d", filter.ExcludeID)
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]*Product, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListProducts"),
		zap.Int("limit", filter.Limit),
		zap.Int("offset", filter.Offset),
	)

	whereClause, args := buildListWhere(filter)

	// ---------- COUNT ----------
	var total int
	countQuery := "SELECT COUNT(*) FROM products p JOIN categories c ON c.id = p.category_id" + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count products", zap.Error(err))
		return nil, 0, err
	}

	// ---------- ORDER ----------
	orderBy, ok := orderingClauses[filter.Ordering]
	if !ok {
		orderBy = orderingClauses[OrderCreatedAtDesc]
	}
	query := productSelect + whereClause + " ORDER BY " + orderBy + ", p.id ASC"

	// ---------- PAGINATION ----------
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Limit, filter.Offset)
	}

	log.Debug("Executing ListProducts query", zap.String("query", query))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("DB query failed ListProducts", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	products := []*Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Error("Row scan failed", zap.Error(err))
			return nil, 0, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		log.Error("Rows iteration failed", zap.Error(err))
		return nil, 0, err
	}

	return products, total, nil
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+" WHERE p.slug = $1", slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetBySlug failed", zap.String("slug", slug), zap.Error(err))
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return p, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+" WHERE p.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetByID failed", zap.Int64("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

func (r *repository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*Product, error) {
	result := make(map[int64]*Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, productSelect+" WHERE p.id = ANY($1)", pq.Array(ids))
	if err != nil {
		logger.FromCtx(ctx).Error("GetByIDs failed", zap.Error(err))
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result[p.ID] = p
	}
	return result, rows.Err()
}

func (r *repository) Create(ctx context.Context, input CreateProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateProduct"),
		zap.String("slug", input.Slug),
	)

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, slug, description, price, discount_percentage, stock, category_id, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		input.Name, input.Slug, input.Description, input.Price, input.DiscountPercentage,
		input.Stock, input.CategoryID, input.IsFeatured,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			log.Warn("product slug already exists")
			return nil, ErrProductExists
		}
		log.Error("CreateProduct DB query failed", zap.Error(err))
		return nil, fmt.Errorf("create product failed: %w", err)
	}

	log.Info("CreateProduct success", zap.Int64("product_id", id))
	return r.GetByID(ctx, id)
}

func (r *repository) Update(ctx context.Context, id int64, input UpdateProductInput) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateProduct"),
		zap.Int64("product_id", id),
	)

	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if input.Name != nil {
		add("name", *input.Name)
	}
	if input.Description != nil {
		add("description", *input.Description)
	}
	if input.Price != nil {
		add("price", *input.Price)
	}
	if input.DiscountPercentage != nil {
		add("discount_percentage", *input.DiscountPercentage)
	}
	if input.Stock != nil {
		add("stock", *input.Stock)
	}
	if input.CategoryID != nil {
		add("category_id", *input.CategoryID)
	}
	if input.IsFeatured != nil {
		add("is_featured", *input.IsFeatured)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE products SET %s, updated_at = NOW() WHERE id = $%d",
		strings.Join(set, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("UpdateProduct failed", zap.Error(err))
		return fmt.Errorf("update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrProductInUse
		}
		logger.FromCtx(ctx).Error("DeleteProduct failed", zap.Int64("product_id", id), zap.Error(err))
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) GetGallery(ctx context.Context, productIDs []int64) (map[int64][]GalleryImage, error) {
	result := make(map[int64][]GalleryImage)
	if len(productIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, image_path, caption
		FROM product_gallery
		WHERE product_id = ANY($1)
		ORDER BY id ASC`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("query gallery: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var g GalleryImage
		if err := rows.Scan(&g.ID, &g.ProductID, &g.Path, &g.Caption); err != nil {
			return nil, fmt.Errorf("scan gallery: %w", err)
		}
		result[g.ProductID] = append(result[g.ProductID], g)
	}
	return result, rows.Err()
}

func (r *repository) AddGalleryImage(ctx context.Context, productID int64, path, caption string) (*GalleryImage, error) {
	g := GalleryImage{ProductID: productID, Path: path, Caption: caption}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO product_gallery (product_id, image_path, caption)
		VALUES ($1, $2, $3)
		RETURNING id`, productID, path, caption).Scan(&g.ID)
	if err != nil {
		logger.FromCtx(ctx).Error("AddGalleryImage failed", zap.Int64("product_id", productID), zap.Error(err))
		return nil, fmt.Errorf("add gallery image: %w", err)
	}
	return &g, nil
}

func (r *repository) GetGalleryImage(ctx context.Context, id int64) (*GalleryImage, error) {
	var g GalleryImage
	err := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, image_path, caption
		FROM product_gallery WHERE id = $1`, id).
		Scan(&g.ID, &g.ProductID, &g.Path, &g.Caption)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGalleryImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gallery image: %w", err)
	}
	return &g, nil
}

func (r *repository) DeleteGalleryImage(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM product_gallery WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete gallery image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGalleryImageNotFound
	}
	return nil
}

func (r *repository) GetCharacteristics(ctx context.Context, productIDs []int64) (map[int64][]Characteristic, error) {
	result := make(map[int64][]Characteristic)
	if len(productIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT pc.id, pc.product_id, pc.characteristic_type_id, t.name, pc.value, t.suffix
		FROM product_characteristics pc
		JOIN characteristic_types t ON t.id = pc.characteristic_type_id
		WHERE pc.product_id = ANY($1)
		ORDER BY pc.id ASC`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("query characteristics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Characteristic
		var suffix sql.NullString
		if err := rows.Scan(&c.ID, &c.ProductID, &c.CharacteristicTypeID, &c.Name, &c.Value, &suffix); err != nil {
			return nil, fmt.Errorf("scan characteristic: %w", err)
		}
		if suffix.Valid {
			c.Suffix = &suffix.String
		}
		result[c.ProductID] = append(result[c.ProductID], c)
	}
	return result, rows.Err()
}

func (r *repository) AddCharacteristic(ctx context.Context, productID int64, input AddCharacteristicInput) (*Characteristic, error) {
	c := Characteristic{ProductID: productID, CharacteristicTypeID: input.CharacteristicTypeID, Value: input.Value}
	var suffix sql.NullString

	err := r.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO product_characteristics (product_id, characteristic_type_id, value)
			VALUES ($1, $2, $3)
			RETURNING id, characteristic_type_id
		)
		SELECT i.id, t.name, t.suffix
		FROM inserted i
		JOIN characteristic_types t ON t.id = i.characteristic_type_id`,
		productID, input.CharacteristicTypeID, input.Value,
	).Scan(&c.ID, &c.Name, &suffix)
	if err != nil {
		logger.FromCtx(ctx).Error("AddCharacteristic failed", zap.Int64("product_id", productID), zap.Error(err))
		return nil, fmt.Errorf("add characteristic: %w", err)
	}

	if suffix.Valid {
		c.Suffix = &suffix.String
	}
	return &c, nil
}

func (r *repository) GetComments(ctx context.Context, productID int64) ([]Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pc.id, pc.product_id, pc.rating, pc.comment, pc.created_at, pc.updated_at,
			u.id, u.email, u.first_name, u.last_name
		FROM product_comments pc
		JOIN users u ON u.id = pc.user_id
		WHERE pc.product_id = $1
		ORDER BY pc.created_at DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ProductID, &c.Rating, &c.Comment, &c.CreatedAt, &c.UpdatedAt,
			&c.User.ID, &c.User.Email, &c.User.FirstName, &c.User.LastName); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *repository) CreateComment(ctx context.Context, userID int64, input CreateCommentInput) (*Comment, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateComment"),
		zap.Int64("product_id", input.ProductID),
		zap.Int64("user_id", userID),
	)

	c := Comment{ProductID: input.ProductID, Rating: input.Rating, Comment: input.Comment}
	err := r.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO product_comments (product_id, user_id, rating, comment)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, created_at, updated_at
		)
		SELECT i.id, i.created_at, i.updated_at, u.id, u.email, u.first_name, u.last_name
		FROM inserted i
		JOIN users u ON u.id = i.user_id`,
		input.ProductID, userID, input.Rating, input.Comment,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.User.ID, &c.User.Email, &c.User.FirstName, &c.User.LastName)
	if err != nil {
		if db.IsUniqueViolation(err) {
			log.Warn("duplicate comment")
			return nil, ErrAlreadyCommented
		}
		log.Error("CreateComment failed", zap.Error(err))
		return nil, fmt.Errorf("create comment: %w", err)
	}

	log.Info("CreateComment success", zap.Int64("comment_id", c.ID))
	return &c, nil
}
