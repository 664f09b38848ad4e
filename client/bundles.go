package client

import (
	"context"
	"net/url"

	"github.com/WIPACrepo/lta/cmn"
)

// PopBundle claims one bundle matching (source, dest, status), or returns a
// nil bundle if none matched (spec §4.3).
func (c *Client) PopBundle(ctx context.Context, source, dest, status, claimant string) (*cmn.Bundle, error) {
	q := url.Values{}
	if source != "" {
		q.Set("source", source)
	}
	if dest != "" {
		q.Set("dest", dest)
	}
	if status != "" {
		q.Set("status", status)
	}
	var out struct {
		Bundle *cmn.Bundle `json:"bundle"`
	}
	err := c.do(ctx, reqParams{
		method: "POST",
		path:   "/Bundles/actions/pop",
		query:  q,
		body:   map[string]string{"claimant": claimant},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out.Bundle, nil
}

// GetBundle fetches a bundle by uuid.
func (c *Client) GetBundle(ctx context.Context, uuid string) (*cmn.Bundle, error) {
	var b cmn.Bundle
	err := c.do(ctx, reqParams{method: "GET", path: "/Bundles/" + uuid, out: &b})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBundlesByRequest lists bundles filtered by request uuid (used by the finisher
// to enumerate a transfer request's siblings, spec §4.5).
func (c *Client) ListBundlesByRequest(ctx context.Context, requestUUID string) ([]*cmn.Bundle, error) {
	q := url.Values{"request": {requestUUID}}
	var out struct {
		Results []*cmn.Bundle `json:"results"`
	}
	if err := c.do(ctx, reqParams{method: "GET", path: "/Bundles", query: q, out: &out}); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// PatchBundle merges patch onto the bundle with the given uuid.
func (c *Client) PatchBundle(ctx context.Context, uuid string, patch map[string]interface{}) error {
	return c.do(ctx, reqParams{method: "PATCH", path: "/Bundles/" + uuid, body: patch})
}

// BulkCreateBundles creates every bundle in bundles, returning assigned uuids.
func (c *Client) BulkCreateBundles(ctx context.Context, bundles []cmn.Bundle) ([]string, error) {
	var out struct {
		Bundles []string `json:"bundles"`
	}
	err := c.do(ctx, reqParams{
		method: "POST",
		path:   "/Bundles/actions/bulk_create",
		body:   map[string]interface{}{"bundles": bundles},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out.Bundles, nil
}
