package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/utafrali/catalog/pkg/httpclient"
)

const userServiceName = "user"

// User is the part of a user profile the catalog displays.
type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// UserClient reads profiles from the user service.
type UserClient struct {
	baseURL string
	doer    httpclient.Doer
}

// NewUserClient creates a client for the user service at baseURL.
func NewUserClient(baseURL string, doer httpclient.Doer) *UserClient {
	return &UserClient{baseURL: baseURL, doer: doer}
}

// GetUser fetches one user profile.
func (c *UserClient) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	url := joinURL(c.baseURL, fmt.Sprintf("/api/v1/users/%s", id))

	var u User
	if err := httpclient.GetJSON(ctx, c.doer, url, userServiceName, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
