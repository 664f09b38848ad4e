// Package catalog implements a thin client for the external file-catalog
// REST API (spec §6, contract-only): file record creation/update and
// location registration, built the same way client.Client talks to the LTA
// DB itself.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Location is one place a catalog file can be found.
type Location struct {
	Site    string `json:"site"`
	Path    string `json:"path"`
	Online  bool   `json:"online"`
	Archive bool   `json:"archive,omitempty"`
}

// FileRecord is the catalog's representation of one logical file.
type FileRecord struct {
	UUID        string                 `json:"uuid"`
	LogicalName string                 `json:"logical_name"`
	Checksum    map[string]string      `json:"checksum,omitempty"`
	Locations   []Location             `json:"locations"`
	FileSize    int64                  `json:"file_size"`
	LTA         map[string]interface{} `json:"lta,omitempty"`
}

// Client talks to the external file catalog over bearer-token REST.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// New builds a catalog Client. Unlike client.Client (LTA DB), the catalog
// token is a long-lived static credential configured per component, not an
// OpenID client-credentials flow (spec §6 names no token endpoint for it).
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, token: token, hc: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("file catalog: status %d: %s", resp.StatusCode, string(data))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// CreateOrUpdateFile registers rec with the catalog (spec §4.5): POST
// /api/files, and on conflict (409) falls back to PATCH /api/files/{uuid}
// with the identical body.
func (c *Client) CreateOrUpdateFile(ctx context.Context, rec FileRecord) error {
	status, err := c.do(ctx, "POST", "/api/files", rec, nil)
	if err == nil {
		return nil
	}
	if status == http.StatusConflict {
		_, err = c.do(ctx, "PATCH", "/api/files/"+rec.UUID, rec, nil)
		return err
	}
	return err
}

// GetFile fetches a file record by uuid.
func (c *Client) GetFile(ctx context.Context, uuid string) (*FileRecord, error) {
	var rec FileRecord
	if _, err := c.do(ctx, "GET", "/api/files/"+uuid, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AddLocation registers one new location for the file uuid. The catalog
// de-duplicates by (site, path), so this is idempotent (spec §8).
func (c *Client) AddLocation(ctx context.Context, uuid string, loc Location) error {
	_, err := c.do(ctx, "POST", "/api/files/"+uuid+"/locations", loc, nil)
	return err
}
