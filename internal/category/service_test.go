package category

import (
	"context"
	"errors"
	"testing"

	"ridefuture-be/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListCategories(ctx context.Context) ([]*Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Category), args.Error(1)
}

func (m *MockRepository) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Category), args.Error(1)
}

func (m *MockRepository) GetCategoryByID(ctx context.Context, id int64) (*Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Category), args.Error(1)
}

func (m *MockRepository) CreateCategory(ctx context.Context, input CreateCategoryInput) (*Category, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Category), args.Error(1)
}

func (m *MockRepository) GetCharacteristicsByCategoryIDs(ctx context.Context, ids []int64) (map[int64][]*CharacteristicType, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64][]*CharacteristicType), args.Error(1)
}

func (m *MockRepository) GetCharacteristicType(ctx context.Context, id int64) (*CharacteristicType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CharacteristicType), args.Error(1)
}

func (m *MockRepository) CreateCharacteristicType(ctx context.Context, input CreateCharacteristicTypeInput) (*CharacteristicType, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CharacteristicType), args.Error(1)
}

// --- Tests ---

func TestService_ListCategories(t *testing.T) {
	ctx := context.Background()

	t.Run("Attaches characteristics", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		cats := []*Category{{ID: 1, Name: "Bikes"}, {ID: 2, Name: "Scooters"}}
		repo.On("ListCategories", ctx).Return(cats, nil)
		repo.On("GetCharacteristicsByCategoryIDs", ctx, []int64{1, 2}).
			Return(map[int64][]*CharacteristicType{1: {{ID: 10, Name: "Range"}}}, nil)

		res, err := svc.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, res[0].Characteristics, 1)
		assert.NotNil(t, res[1].Characteristics)
		assert.Empty(t, res[1].Characteristics)
		repo.AssertExpectations(t)
	})

	t.Run("Empty", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListCategories", ctx).Return([]*Category{}, nil)

		res, err := NewService(repo).ListCategories(ctx)
		assert.NoError(t, err)
		assert.Empty(t, res)
		repo.AssertNotCalled(t, "GetCharacteristicsByCategoryIDs", mock.Anything, mock.Anything)
	})

	t.Run("Repo error", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListCategories", ctx).Return(nil, errors.New("db error"))

		_, err := NewService(repo).ListCategories(ctx)
		assert.Error(t, err)
	})
}

func TestService_GetCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetCategoryBySlug", ctx, "bikes").Return(&Category{ID: 1, Slug: "bikes"}, nil)
		repo.On("GetCharacteristicsByCategoryIDs", ctx, []int64{1}).Return(map[int64][]*CharacteristicType{}, nil)

		c, err := NewService(repo).GetCategory(ctx, "bikes")
		assert.NoError(t, err)
		assert.Equal(t, "bikes", c.Slug)
		assert.NotNil(t, c.Characteristics)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetCategoryBySlug", ctx, "nope").Return(nil, ErrCategoryNotFound)

		_, err := NewService(repo).GetCategory(ctx, "nope")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestService_CreateCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("Derives slug", func(t *testing.T) {
		repo := new(MockRepository)
		expectedInput := CreateCategoryInput{Name: "Electric Bikes", Slug: "electric-bikes"}
		repo.On("CreateCategory", ctx, expectedInput).Return(&Category{ID: 3, Name: "Electric Bikes", Slug: "electric-bikes"}, nil)

		c, err := NewService(repo).CreateCategory(ctx, CreateCategoryInput{Name: "  Electric Bikes "})
		assert.NoError(t, err)
		assert.Equal(t, "electric-bikes", c.Slug)
		repo.AssertExpectations(t)
	})

	t.Run("Empty name", func(t *testing.T) {
		repo := new(MockRepository)
		_, err := NewService(repo).CreateCategory(ctx, CreateCategoryInput{Name: " "})

		var vErr *apperror.ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields, "name")
		repo.AssertNotCalled(t, "CreateCategory", mock.Anything, mock.Anything)
	})

	t.Run("Duplicate", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("CreateCategory", ctx, mock.Anything).Return(nil, ErrCategoryExists)

		_, err := NewService(repo).CreateCategory(ctx, CreateCategoryInput{Name: "Bikes"})
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})
}

func TestService_CreateCharacteristicType(t *testing.T) {
	ctx := context.Background()

	t.Run("Success with default data type", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetCategoryByID", ctx, int64(1)).Return(&Category{ID: 1}, nil)
		repo.On("CreateCharacteristicType", ctx, CreateCharacteristicTypeInput{Name: "Color", DataType: DataTypeString, CategoryIDs: []int64{1}}).
			Return(&CharacteristicType{ID: 5, Name: "Color", DataType: DataTypeString}, nil)

		res, err := NewService(repo).CreateCharacteristicType(ctx, CreateCharacteristicTypeInput{Name: "Color", CategoryIDs: []int64{1}})
		assert.NoError(t, err)
		assert.Equal(t, int64(5), res.ID)
		repo.AssertExpectations(t)
	})

	t.Run("Invalid data type", func(t *testing.T) {
		repo := new(MockRepository)
		_, err := NewService(repo).CreateCharacteristicType(ctx, CreateCharacteristicTypeInput{Name: "Weight", DataType: "decimal"})

		var vErr *apperror.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields, "data_type")
	})

	t.Run("Unknown category", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetCategoryByID", ctx, int64(99)).Return(nil, ErrCategoryNotFound)

		_, err := NewService(repo).CreateCharacteristicType(ctx, CreateCharacteristicTypeInput{Name: "Range", DataType: DataTypeInteger, CategoryIDs: []int64{99}})

		var vErr *apperror.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields, "categories")
	})
}

func TestCharacteristicType_ValidateValue(t *testing.T) {
	tests := []struct {
		dataType DataType
		value    string
		valid    bool
	}{
		{DataTypeInteger, "42", true},
		{DataTypeInteger, "4.2", false},
		{DataTypeInteger, "abc", false},
		{DataTypeFloat, "4.2", true},
		{DataTypeFloat, "12", true},
		{DataTypeFloat, "fast", false},
		{DataTypeBoolean, "true", true},
		{DataTypeBoolean, "FALSE", true},
		{DataTypeBoolean, "yes", false},
		{DataTypeBoolean, "1", false},
		{DataTypeString, "anything goes", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.dataType)+"/"+tt.value, func(t *testing.T) {
			ct := &CharacteristicType{Name: "Attr", DataType: tt.dataType}
			err := ct.ValidateValue(tt.value)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				var vErr *apperror.ValidationError
				assert.ErrorAs(t, err, &vErr)
			}
		})
	}
}
