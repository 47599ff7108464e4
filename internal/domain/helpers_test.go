package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/catalog/pkg/errors"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// requireAppError asserts err is an AppError with the given code and returns it.
func requireAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code, appErr.Error())
	return appErr
}

func fieldNames(appErr *apperrors.AppError) []string {
	names := make([]string, 0, len(appErr.Fields))
	for _, f := range appErr.Fields {
		names = append(names, f.Field)
	}
	return names
}

// colorType returns a "Color" type with Red and Blue options.
func colorType(t *testing.T) *VariationType {
	t.Helper()
	vt, err := NewVariationType("Color", "", []OptionSpec{
		{Value: "Red", SortOrder: 1},
		{Value: "Blue", SortOrder: 2},
	}, testNow)
	require.NoError(t, err)
	return vt
}

func optionID(t *testing.T, vt *VariationType, value string) uuid.UUID {
	t.Helper()
	for _, o := range vt.Options {
		if o.Value == value {
			return o.ID
		}
	}
	t.Fatalf("option %q not found on %s", value, vt.Name)
	return uuid.Nil
}
