// Package client talks to a callerid server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/provider"
)

// StatusError is returned for any non-2xx answer the server gives.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps protocol answers back onto the provider errors, so callers can
// use errors.Is the same way they would against a local provider.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusMethodNotAllowed:
		return provider.ErrUnsupportedOperation
	case http.StatusNotFound:
		return provider.ErrNotFound
	}
	return nil
}

type Client struct {
	base     string
	http     *retryablehttp.Client
	username string
	password string
}

// New returns a client for the server at baseURL, e.g. http://127.0.0.1:7070.
// Credentials are only sent to the admin API.
func New(baseURL, username, password string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = 10 * time.Second

	return &Client{
		base:     strings.TrimRight(baseURL, "/"),
		http:     retryClient,
		username: username,
		password: password,
	}, nil
}

// SetRetryMax overrides how many times a failed request is retried.
func (c *Client) SetRetryMax(n int) {
	c.http.RetryMax = n
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, admin bool) (*http.Response, error) {
	var rawBody interface{}
	if body != nil {
		rawBody = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, rawBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && (c.username != "" || c.password != "") {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		msg := strings.TrimSpace(string(b))
		if gjson.Valid(msg) {
			if e := gjson.Get(msg, "error"); e.Exists() {
				msg = e.String()
			}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, admin bool, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, admin)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func withProjection(path string, projection []string) string {
	if len(projection) == 0 {
		return path
	}
	return path + "?" + url.Values{"projection": {strings.Join(projection, ",")}}.Encode()
}

// Directories fetches the capability row.
func (c *Client) Directories(ctx context.Context, projection ...string) (*provider.Cursor, error) {
	var cur provider.Cursor
	if err := c.getJSON(ctx, withProjection("/"+provider.DirectoriesPath, projection), false, &cur); err != nil {
		return nil, err
	}
	return &cur, nil
}

// Lookup resolves number on the server. A miss is an empty cursor.
func (c *Client) Lookup(ctx context.Context, number string, projection ...string) (*provider.Cursor, error) {
	path := "/" + provider.PhoneLookupPath + "/" + url.PathEscape(number)
	var cur provider.Cursor
	if err := c.getJSON(ctx, withProjection(path, projection), false, &cur); err != nil {
		return nil, err
	}
	return &cur, nil
}

// Photo downloads the caller photo and its content type.
func (c *Client) Photo(ctx context.Context) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/"+provider.PrimaryPhotoPath, nil, false)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return b, resp.Header.Get("Content-Type"), nil
}

// Records lists the directory through the admin API.
func (c *Client) Records(ctx context.Context) ([]directory.Record, error) {
	var records []directory.Record
	if err := c.getJSON(ctx, "/api/records", true, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// PutRecord adds or replaces a record through the admin API.
func (c *Client) PutRecord(ctx context.Context, firstName, lastName, number, kind string) error {
	body, err := json.Marshal(map[string]string{
		"first_name": firstName,
		"last_name":  lastName,
		"phone":      number,
		"type":       kind,
	})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, "/api/records", body, true)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// DeleteRecord removes a record through the admin API.
func (c *Client) DeleteRecord(ctx context.Context, firstName, lastName string) error {
	q := url.Values{"first_name": {firstName}, "last_name": {lastName}}
	resp, err := c.do(ctx, http.MethodDelete, "/api/records?"+q.Encode(), nil, true)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
