package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/catalog/pkg/errors"
)

const maxErrorBody = 1 << 20

// envelope mirrors httputil.Response as produced by sibling services.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetJSON performs a GET through d and decodes the "data" member of the
// response envelope into dst. Non-2xx responses become AppErrors via
// ParseResponseError; an open breaker becomes ServiceUnavailable.
func GetJSON(ctx context.Context, d Doer, url, serviceName string, dst any) error {
	resp, err := get(ctx, d, url)
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return apperrors.ServiceUnavailable(serviceName + " is unavailable")
		}
		return fmt.Errorf("call %s: %w", serviceName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&env); err != nil {
		return fmt.Errorf("decode %s response: %w", serviceName, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("decode %s response: missing data", serviceName)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("decode %s response data: %w", serviceName, err)
	}
	return nil
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// translates it into an AppError, keeping the downstream code and message
// when the body is a standard error envelope.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return mapDownstreamError(resp.StatusCode, env.Error.Code, env.Error.Message, serviceName)
	}
	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	qualified := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.ConflictCode(code, qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case status == http.StatusUnprocessableEntity:
		return apperrors.BusinessRule(code, qualified)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualified)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}
