package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/catalog/pkg/errors"
)

type variantInput struct {
	Price int64 `json:"price" validate:"gte=0"`
}

type productInput struct {
	Name     string         `json:"name" validate:"required,notblank,max=10"`
	Slug     string         `json:"slug" validate:"omitempty,slug"`
	Rating   int            `json:"rating" validate:"gte=1,lte=5"`
	Status   string         `json:"status" validate:"omitempty,oneof=active inactive"`
	ParentID *string        `json:"parent_id" validate:"omitempty,uuid"`
	Variants []variantInput `json:"variants" validate:"dive"`
}

func valid() productInput {
	return productInput{Name: "Shirt", Slug: "basic-shirt", Rating: 5}
}

func fieldMap(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	out := make(map[string]string)
	for _, f := range valErr.Fields() {
		out[f.Field] = f.Message
	}
	return out
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(valid()))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	in := valid()
	in.Name = ""
	fields := fieldMap(t, Validate(in))
	assert.Equal(t, "is required", fields["name"])
}

func TestValidate_NotBlank(t *testing.T) {
	in := valid()
	in.Name = "   "
	fields := fieldMap(t, Validate(in))
	assert.Equal(t, "is required", fields["name"])
}

func TestValidate_Slug(t *testing.T) {
	for _, bad := range []string{"Shirt", "basic--shirt", "-shirt", "shirt-", "basic_shirt"} {
		in := valid()
		in.Slug = bad
		fields := fieldMap(t, Validate(in))
		assert.Contains(t, fields["slug"], "kebab-case", bad)
	}
	for _, good := range []string{"shirt", "basic-shirt-2", "a1"} {
		in := valid()
		in.Slug = good
		assert.NoError(t, Validate(in), good)
	}
}

func TestValidate_RangeAndOneOf(t *testing.T) {
	in := valid()
	in.Rating = 6
	in.Status = "deleted"
	in.Name = "a very long name"

	fields := fieldMap(t, Validate(in))
	assert.Contains(t, fields["rating"], "5")
	assert.Contains(t, fields["status"], "one of")
	assert.Contains(t, fields["name"], "at most 10 characters")
}

func TestValidate_UUIDPointer(t *testing.T) {
	bad := "not-a-uuid"
	in := valid()
	in.ParentID = &bad
	fields := fieldMap(t, Validate(in))
	assert.Equal(t, "must be a valid UUID", fields["parent_id"])
}

func TestValidate_NestedPath(t *testing.T) {
	in := valid()
	in.Variants = []variantInput{{Price: 10}, {Price: -1}}
	fields := fieldMap(t, Validate(in))
	assert.Contains(t, fields, "variants[1].price")
}

func TestValidationError_AppError(t *testing.T) {
	in := valid()
	in.Rating = 0
	err := Validate(in)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	appErr := valErr.AppError()
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.ErrorIs(t, appErr, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "field 'rating'")
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Shirt","rating":4}`))
		var in productInput
		require.NoError(t, DecodeAndValidate(req, &in))
		assert.Equal(t, "Shirt", in.Name)
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))
		var in productInput
		assert.ErrorContains(t, DecodeAndValidate(req, &in), "decode request body")
	})

	t.Run("validation failure", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"","rating":4}`))
		var in productInput
		var valErr *ValidationError
		assert.ErrorAs(t, DecodeAndValidate(req, &in), &valErr)
	})
}
