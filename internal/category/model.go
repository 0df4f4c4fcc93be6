package category

import (
	"strconv"
	"strings"
	"time"

	"ridefuture-be/internal/apperror"
)

type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeInteger DataType = "integer"
	DataTypeFloat   DataType = "float"
	DataTypeBoolean DataType = "boolean"
)

func (d DataType) Valid() bool {
	switch d {
	case DataTypeString, DataTypeInteger, DataTypeFloat, DataTypeBoolean:
		return true
	}
	return false
}

type Category struct {
	ID                int64                 `json:"id"`
	Name              string                `json:"name"`
	Slug              string                `json:"slug"`
	Icon              *string               `json:"icon"`
	LongTermGuarantee bool                  `json:"long_term_guarantee"`
	Characteristics   []*CharacteristicType `json:"characteristics"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

type CharacteristicType struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	DataType    DataType `json:"data_type"`
	Suffix      *string  `json:"suffix"`
	CategoryIDs []int64  `json:"categories,omitempty"`
}

// ValidateValue checks that value can be read as the type's data type.
func (c *CharacteristicType) ValidateValue(value string) error {
	value = strings.TrimSpace(value)

	switch c.DataType {
	case DataTypeInteger:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return apperror.NewValidation("value", "value must be an integer for "+c.Name)
		}
	case DataTypeFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return apperror.NewValidation("value", "value must be a float for "+c.Name)
		}
	case DataTypeBoolean:
		if v := strings.ToLower(value); v != "true" && v != "false" {
			return apperror.NewValidation("value", "value must be 'true' or 'false' for "+c.Name)
		}
	}
	return nil
}

type CreateCategoryInput struct {
	Name              string  `json:"name"`
	Slug              string  `json:"slug"`
	Icon              *string `json:"icon"`
	LongTermGuarantee bool    `json:"long_term_guarantee"`
}

type CreateCharacteristicTypeInput struct {
	Name        string   `json:"name"`
	DataType    DataType `json:"data_type"`
	Suffix      *string  `json:"suffix"`
	CategoryIDs []int64  `json:"categories"`
}
