package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// queryParams reads typed query values, keeping the first parse failure.
type queryParams struct {
	r   *http.Request
	err error
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{r: r}
}

func (q *queryParams) raw(name string) string {
	return strings.TrimSpace(q.r.URL.Query().Get(name))
}

func (q *queryParams) fail(name, message string) {
	if q.err == nil {
		q.err = apperrors.FieldInvalid(name, message)
	}
}

func (q *queryParams) String(name string) *string {
	if v := q.raw(name); v != "" {
		return &v
	}
	return nil
}

func (q *queryParams) Int(name string) int {
	v := q.raw(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		q.fail(name, name+" must be a positive integer")
		return 0
	}
	return n
}

func (q *queryParams) Int64(name string) *int64 {
	v := q.raw(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		q.fail(name, name+" must be a non-negative integer")
		return nil
	}
	return &n
}

func (q *queryParams) Bool(name string) *bool {
	v := q.raw(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.fail(name, name+" must be true or false")
		return nil
	}
	return &b
}

func (q *queryParams) UUID(name string) *uuid.UUID {
	v := q.raw(name)
	if v == "" {
		return nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		q.fail(name, name+" must be a valid UUID")
		return nil
	}
	return &id
}

// Err returns the first parse failure.
func (q *queryParams) Err() error {
	return q.err
}
