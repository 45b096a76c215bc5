package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetCalls fetches a page of calls.
func (c *Client) GetCalls(ctx context.Context, opts GetCallsOptions) (*CallsResponse, error) {
	query := url.Values{}

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.Agent != "" {
		query.Set("agent", opts.Agent)
	}
	if opts.Active {
		query.Set("active", "true")
	}

	var resp CallsResponse
	if err := c.get(ctx, "/calls", query, &resp); err != nil {
		return nil, fmt.Errorf("get calls: %w", err)
	}

	return &resp, nil
}

// GetAllCalls fetches all calls by paginating through results.
func (c *Client) GetAllCalls(ctx context.Context) ([]APICall, error) {
	return c.GetAllCallsWithOptions(ctx, GetCallsOptions{})
}

// GetAllCallsWithOptions fetches all calls matching the given options.
func (c *Client) GetAllCallsWithOptions(ctx context.Context, opts GetCallsOptions) ([]APICall, error) {
	var allCalls []APICall
	if opts.Limit <= 0 {
		opts.Limit = 500 // Max page size
	}

	for {
		resp, err := c.GetCalls(ctx, opts)
		if err != nil {
			return nil, err
		}

		allCalls = append(allCalls, resp.Calls...)

		if resp.Cursor == "" {
			break
		}
		opts.Cursor = resp.Cursor
	}

	return allCalls, nil
}

// GetCall fetches a single call by ID.
func (c *Client) GetCall(ctx context.Context, id string) (*APICall, error) {
	var resp SingleCallResponse
	if err := c.get(ctx, "/calls/"+id, nil, &resp); err != nil {
		return nil, fmt.Errorf("get call %s: %w", id, err)
	}
	return &resp.Call, nil
}

// GetInteractions fetches the full interaction history for a call.
func (c *Client) GetInteractions(ctx context.Context, callID string) ([]APIInteraction, error) {
	var all []APIInteraction
	cursor := ""

	for {
		query := url.Values{}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var resp InteractionsResponse
		if err := c.get(ctx, "/calls/"+callID+"/interactions", query, &resp); err != nil {
			return nil, fmt.Errorf("get interactions %s: %w", callID, err)
		}

		all = append(all, resp.Interactions...)

		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	return all, nil
}
