// ABOUTME: Identity endpoints: sign-in, account creation, and profile updates
// ABOUTME: Sign-in and sign-up are sent without credentials; profile updates are authenticated

package client

import (
	"context"
	"fmt"
	"net/http"
)

// SignIn exchanges email and password for a user and credential pair. It does
// not install the credentials; the session machine decides when to.
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	input := map[string]string{"email": email, "password": password}

	var result SignInResult
	if err := c.call(ctx, http.MethodPost, "/sessions", input, false, &result); err != nil {
		return nil, err
	}
	if result.User.ID == "" || !result.Credentials().Valid() {
		return nil, fmt.Errorf("%w: sign-in response missing user or tokens", ErrUnknown)
	}
	return &result, nil
}

// SignUp creates an account. The server may answer with the created user or
// an empty body.
func (c *Client) SignUp(ctx context.Context, name, email, password string) (*User, error) {
	input := map[string]string{"name": name, "email": email, "password": password}

	var user User
	if err := c.call(ctx, http.MethodPost, "/users", input, false, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile sends a partial update of the signed-in user. When the server
// answers without a body the requested fields are taken as accepted.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (AcceptedProfile, error) {
	r, err := newRequest(http.MethodPut, "/users", update, true)
	if err != nil {
		return AcceptedProfile{}, err
	}

	body, err := c.do(ctx, r)
	if err != nil {
		return AcceptedProfile{}, err
	}

	accepted := AcceptedProfile{Name: update.Name, Avatar: update.Avatar}
	if err := decodeBody(body, &accepted); err != nil {
		return AcceptedProfile{}, err
	}
	return accepted, nil
}
