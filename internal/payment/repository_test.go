package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_ProductRefs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectQuery(`SELECT remote_product_id FROM payment_product_refs WHERE local_key = \$1`).
			WithArgs("product:1").
			WillReturnRows(sqlmock.NewRows([]string{"remote_product_id"}))

		id, ok, err := repo.GetProductRef(ctx, "product:1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, id)
	})

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT remote_product_id FROM payment_product_refs`).
			WithArgs("guarantee:1").
			WillReturnRows(sqlmock.NewRows([]string{"remote_product_id"}).AddRow("prod_g"))

		id, ok, err := repo.GetProductRef(ctx, "guarantee:1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "prod_g", id)
	})

	t.Run("Save Returns Winner", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_product_refs .* ON CONFLICT \(local_key\)`).
			WithArgs("product:1", "prod_new").
			WillReturnRows(sqlmock.NewRows([]string{"remote_product_id"}).AddRow("prod_old"))

		id, err := repo.SaveProductRef(ctx, "product:1", "prod_new")
		require.NoError(t, err)
		assert.Equal(t, "prod_old", id)
	})

	t.Run("DB Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT remote_product_id FROM payment_product_refs`).
			WillReturnError(errors.New("connection lost"))

		_, _, err := repo.GetProductRef(ctx, "product:2")
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PriceRefs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT remote_price_id FROM payment_price_refs`).
		WithArgs("prod_1", int64(18000), "usd").
		WillReturnRows(sqlmock.NewRows([]string{"remote_price_id"}))
	mock.ExpectQuery(`INSERT INTO payment_price_refs`).
		WithArgs("prod_1", int64(18000), "usd", "price_1").
		WillReturnRows(sqlmock.NewRows([]string{"remote_price_id"}).AddRow("price_1"))

	_, ok, err := repo.GetPriceRef(ctx, "prod_1", 18000, "USD")
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := repo.SavePriceRef(ctx, "prod_1", 18000, "USD", "price_1")
	require.NoError(t, err)
	assert.Equal(t, "price_1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
