// Package client talks to the comment API over HTTP. A Client satisfies
// comments.Backend, so a remote viewer can drive a comments.View exactly
// like an in-process one.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"folio/api/internal/comments"
)

type Option func(*Client)

// WithToken sends the access token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (c *Client) List(ctx context.Context, postSlug string) (comments.Forest, error) {
	var out struct {
		Comments comments.Forest `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(postSlug)+"/comments", nil, &out); err != nil {
		return nil, err
	}
	if out.Comments == nil {
		out.Comments = comments.Forest{}
	}
	return out.Comments, nil
}

func (c *Client) Create(ctx context.Context, postSlug, content string, parentID *string) (comments.Comment, error) {
	body := map[string]any{"content": content, "parentId": parentID}
	var out struct {
		Comment comments.Comment `json:"comment"`
	}
	err := c.do(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(postSlug)+"/comments", body, &out)
	return out.Comment, err
}

func (c *Client) Edit(ctx context.Context, id, content string) (comments.Comment, error) {
	var out struct {
		Comment comments.Comment `json:"comment"`
	}
	err := c.do(ctx, http.MethodPut, "/api/comments/"+url.PathEscape(id), map[string]any{"content": content}, &out)
	return out.Comment, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/comments/"+url.PathEscape(id), nil, nil)
}

func (c *Client) TogglePin(ctx context.Context, id string, pinned bool) (comments.Comment, error) {
	var out struct {
		Comment comments.Comment `json:"comment"`
	}
	err := c.do(ctx, http.MethodPut, "/api/comments/"+url.PathEscape(id)+"/pin", map[string]any{"pinned": pinned}, &out)
	return out.Comment, err
}

// do sends one request. Failures come back as *comments.Error: API errors
// keep their kind, and anything that prevented an answer is a StoreFailure
// so callers may retry it.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &comments.Error{Kind: comments.KindStoreFailure, Message: "Comment service unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &comments.Error{Kind: comments.KindStoreFailure, Message: "Malformed comment service response", Err: err}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
	message := body.Error
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	kind := comments.Kind(body.Code)
	switch kind {
	case comments.KindValidation, comments.KindNotFound, comments.KindIllegalPinTarget, comments.KindStoreFailure:
		return &comments.Error{Kind: kind, Message: message}
	case comments.KindUnauthorized:
		if resp.StatusCode == http.StatusUnauthorized {
			return &comments.Error{Kind: kind, Message: message, Err: comments.ErrSignedOut}
		}
		return &comments.Error{Kind: kind, Message: message}
	}

	if resp.StatusCode >= 500 {
		return &comments.Error{Kind: comments.KindStoreFailure, Message: message, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode == http.StatusNotFound {
		return &comments.Error{Kind: comments.KindNotFound, Message: message}
	}
	return &comments.Error{Kind: comments.KindValidation, Message: message, Err: fmt.Errorf("%s (status %d)", body.Code, resp.StatusCode)}
}
