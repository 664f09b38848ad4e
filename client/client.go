// Package client implements the authenticated REST client every worker uses
// to talk to the LTA DB: OpenID client-credentials token acquisition plus
// thin wrappers over the claim, CRUD, and bulk endpoints (spec §4.4).
//
// Grounded on the teacher's api package idiom: a BaseParams carrying the
// transport and base URL, a ReqParams describing one call, and a single
// DoHTTPRequest choke point that every higher-level call funnels through.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Config carries everything the client needs to reach the LTA DB and its
// OpenID token endpoint.
type Config struct {
	RestURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Retries      int
}

// Client is a token-refreshing REST client bound to one LTA DB instance.
type Client struct {
	baseURL string
	hc      *http.Client
	timeout time.Duration
	retries int
}

// New builds a Client whose requests carry a client-credentials bearer token,
// reacquired transparently by the oauth2 transport on expiry.
func New(cfg Config) *Client {
	ccCfg := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return &Client{
		baseURL: cfg.RestURL,
		hc:      ccCfg.Client(context.Background()),
		timeout: cfg.Timeout,
		retries: cfg.Retries,
	}
}

// reqParams describes one REST call.
type reqParams struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	out    interface{}
}

// do issues one HTTP call, retrying transient failures (timeouts, 5xx) up to
// c.retries times (spec §7.1).
func (c *Client) do(ctx context.Context, p reqParams) error {
	u := c.baseURL + p.path
	if len(p.query) > 0 {
		u += "?" + p.query.Encode()
	}

	var bodyBytes []byte
	if p.body != nil {
		var err error
		bodyBytes, err = json.Marshal(p.body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastErr error
	attempts := c.retries + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, c.timeout)
		req, err := http.NewRequestWithContext(cctx, p.method, u, bytes.NewReader(bodyBytes))
		if err != nil {
			cancel()
			return fmt.Errorf("build request: %w", err)
		}
		if p.body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.hc.Do(req)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		err = c.readResponse(resp, p.out)
		resp.Body.Close()
		if err == nil {
			return nil
		}
		if re, ok := err.(*ResponseError); ok && re.StatusCode < 500 {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}

func (c *Client) readResponse(resp *http.Response, out interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var body struct {
			Reason string `json:"reason"`
		}
		_ = json.Unmarshal(data, &body)
		return &ResponseError{StatusCode: resp.StatusCode, Reason: body.Reason}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// CreateTransferRequestRaw POSTs body as a new TransferRequest, decoding the
// response into out. Used by the reference CLI, which builds the request
// body itself rather than constructing a cmn.TransferRequest.
func (c *Client) CreateTransferRequestRaw(ctx context.Context, body, out interface{}) error {
	return c.do(ctx, reqParams{method: "POST", path: "/TransferRequests", body: body, out: out})
}

// GetRaw issues a GET against path, decoding the response into out. Used by
// the reference CLI for endpoints (like /status) with no dedicated method.
func (c *Client) GetRaw(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, reqParams{method: "GET", path: path, out: out})
}

// ResponseError wraps a non-2xx LTA DB response.
type ResponseError struct {
	StatusCode int
	Reason     string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("lta rest: status %d: %s", e.StatusCode, e.Reason)
}
