// ABOUTME: Workout history endpoints
// ABOUTME: Lists logged exercises grouped by day and registers completed exercises

package client

import (
	"context"
	"net/http"
)

// History returns the signed-in user's log, newest day first
func (c *Client) History(ctx context.Context) ([]HistoryDay, error) {
	var days []HistoryDay
	if err := c.call(ctx, http.MethodGet, "/history", nil, true, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// RegisterHistory records exerciseID as done now
func (c *Client) RegisterHistory(ctx context.Context, exerciseID string) error {
	return c.call(ctx, http.MethodPost, "/history", map[string]string{"exercise_id": exerciseID}, true, nil)
}
