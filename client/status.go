package client

import "context"

// PatchStatus reports a component's heartbeat (spec §4.7).
func (c *Client) PatchStatus(ctx context.Context, component string, fields map[string]interface{}) error {
	return c.do(ctx, reqParams{method: "PATCH", path: "/status/" + component, body: fields})
}
