// ABOUTME: Exercise catalog reads: muscle groups, exercises per group, exercise detail
// ABOUTME: Responses are cached by path when a catalog cache is configured

package client

import (
	"context"
	"net/http"
	"net/url"
)

// Groups returns the muscle group names
func (c *Client) Groups(ctx context.Context) ([]string, error) {
	var groups []string
	if err := c.cachedGet(ctx, "groups", "/groups", &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ExercisesByGroup returns the exercises that train group
func (c *Client) ExercisesByGroup(ctx context.Context, group string) ([]Exercise, error) {
	var exercises []Exercise
	err := c.cachedGet(ctx, "exercises:group:"+group, "/exercises/bygroup/"+url.PathEscape(group), &exercises)
	if err != nil {
		return nil, err
	}
	return exercises, nil
}

// Exercise returns one exercise by ID
func (c *Client) Exercise(ctx context.Context, id string) (*Exercise, error) {
	var exercise Exercise
	if err := c.cachedGet(ctx, "exercise:"+id, "/exercises/"+url.PathEscape(id), &exercise); err != nil {
		return nil, err
	}
	return &exercise, nil
}

func (c *Client) cachedGet(ctx context.Context, key, path string, out any) error {
	if c.catalog != nil {
		if body, ok := c.catalog.Get(key); ok {
			return decodeBody(body, out)
		}
	}

	body, err := c.do(ctx, request{method: http.MethodGet, path: path, auth: true})
	if err != nil {
		return err
	}
	if err := decodeBody(body, out); err != nil {
		return err
	}

	if c.catalog != nil {
		c.catalog.Set(key, body)
	}
	return nil
}
