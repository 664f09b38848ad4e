package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/WIPACrepo/lta/cmn"
)

// BulkCreateMetadata registers one Metadata row per file in files, all
// associated with bundleUUID.
func (c *Client) BulkCreateMetadata(ctx context.Context, bundleUUID string, files []string) ([]string, error) {
	var out struct {
		Metadata []string `json:"metadata"`
	}
	err := c.do(ctx, reqParams{
		method: "POST",
		path:   "/Metadata/actions/bulk_create",
		body:   map[string]interface{}{"bundle_uuid": bundleUUID, "files": files},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out.Metadata, nil
}

// ListMetadataPage lists up to limit Metadata rows for bundleUUID (spec §4.5:
// the catalog-registration pass pages through Metadata in pages of 1000).
func (c *Client) ListMetadataPage(ctx context.Context, bundleUUID string, limit int) ([]*cmn.Metadata, error) {
	q := url.Values{"bundle_uuid": {bundleUUID}}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var out struct {
		Results []*cmn.Metadata `json:"results"`
	}
	if err := c.do(ctx, reqParams{method: "GET", path: "/Metadata", query: q, out: &out}); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// BulkDeleteMetadata deletes every Metadata row named by uuids and returns
// the count the server reports it actually removed. Callers must compare
// this to len(uuids) and raise on mismatch (spec §4.5, §7.5).
func (c *Client) BulkDeleteMetadata(ctx context.Context, uuids []string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, reqParams{
		method: "POST",
		path:   "/Metadata/actions/bulk_delete",
		body:   map[string]interface{}{"metadata": uuids},
		out:    &out,
	})
	if err != nil {
		return 0, err
	}
	return out.Count, nil
}
