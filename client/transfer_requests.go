package client

import (
	"context"
	"net/url"

	"github.com/WIPACrepo/lta/cmn"
)

// PopTransferRequest claims one unclaimed request for source, or returns nil
// if none matched (spec §4.3, picker variant).
func (c *Client) PopTransferRequest(ctx context.Context, source, claimant string) (*cmn.TransferRequest, error) {
	q := url.Values{"source": {source}}
	var out struct {
		Request *cmn.TransferRequest `json:"request"`
	}
	err := c.do(ctx, reqParams{
		method: "POST",
		path:   "/TransferRequests/actions/pop",
		query:  q,
		body:   map[string]string{"claimant": claimant},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out.Request, nil
}

// GetTransferRequest fetches a transfer request by uuid.
func (c *Client) GetTransferRequest(ctx context.Context, uuid string) (*cmn.TransferRequest, error) {
	var req cmn.TransferRequest
	err := c.do(ctx, reqParams{method: "GET", path: "/TransferRequests/" + uuid, out: &req})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// PatchTransferRequest merges patch onto the request with the given uuid.
func (c *Client) PatchTransferRequest(ctx context.Context, uuid string, patch map[string]interface{}) error {
	return c.do(ctx, reqParams{method: "PATCH", path: "/TransferRequests/" + uuid, body: patch})
}
