package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("product not found")
	ErrBadStatus   = errors.New("product manager bad status")
	ErrUnavailable = errors.New("product manager unavailable")
)

// Client talks to the product manager HTTP API.
type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *Client) List(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.do(ctx, http.MethodGet, "/products", nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, id string) (Product, error) {
	var p Product
	err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, http.StatusOK, &p)
	return p, err
}

func (c *Client) Metrics(ctx context.Context) (Metrics, error) {
	var m Metrics
	err := c.do(ctx, http.MethodGet, "/products/metrics", nil, http.StatusOK, &m)
	return m, err
}

// Add submits the form. A rejected form comes back as *FormError.
func (c *Client) Add(ctx context.Context, form ProductForm) (Product, error) {
	var out addResponse
	err := c.do(ctx, http.MethodPost, "/products", form, http.StatusCreated, &out)
	return out.Product, err
}

func (c *Client) Update(ctx context.Context, id string, patch ProductPatch) (Product, error) {
	var p Product
	err := c.do(ctx, http.MethodPatch, "/products/"+url.PathEscape(id), patch, http.StatusOK, &p)
	return p, err
}

func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

func (c *Client) Toggle(ctx context.Context, id string) (Product, error) {
	var p Product
	err := c.do(ctx, http.MethodPost, "/products/"+url.PathEscape(id)+"/toggle", nil, http.StatusOK, &p)
	return p, err
}

func (c *Client) RequestMetrics(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/events/request-metrics", nil, http.StatusAccepted, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case want:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnprocessableEntity:
		var e struct {
			Details FormError `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
		}
		return &e.Details
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
