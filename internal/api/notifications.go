package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetNotifications fetches a page of notifications.
func (c *Client) GetNotifications(ctx context.Context, opts GetNotificationsOptions) (*NotificationsResponse, error) {
	query := url.Values{}

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.Unread {
		query.Set("unread", "true")
	}

	var resp NotificationsResponse
	if err := c.get(ctx, "/notifications", query, &resp); err != nil {
		return nil, fmt.Errorf("get notifications: %w", err)
	}

	return &resp, nil
}

// GetAllNotifications fetches all notifications by paginating through results.
func (c *Client) GetAllNotifications(ctx context.Context) ([]APINotification, error) {
	var all []APINotification
	opts := GetNotificationsOptions{Limit: 500}

	for {
		resp, err := c.GetNotifications(ctx, opts)
		if err != nil {
			return nil, err
		}

		all = append(all, resp.Notifications...)

		if resp.Cursor == "" {
			break
		}
		opts.Cursor = resp.Cursor
	}

	return all, nil
}
