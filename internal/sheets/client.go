// Package sheets is a small Google Sheets v4 values client.
package sheets

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Tiliavir/nt-hours/internal/model"
)

const DefaultBaseURL = "https://sheets.googleapis.com"

// Value input options.
const (
	Raw         = "RAW"
	UserEntered = "USER_ENTERED"
)

// Client reads and writes spreadsheet ranges.
type Client struct {
	http *resty.Client
}

// New wraps an authenticated HTTP client. baseURL may be empty.
func New(hc *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.NewWithClient(hc).
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	return &Client{http: c}
}

type valueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values"`
}

func (c *Client) request(ctx context.Context, book, rng string) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetPathParam("book", book).
		SetPathParam("range", rng)
}

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &model.ExternalIOError{Op: op, Err: err}
	}
	if resp.IsError() {
		return &model.ExternalIOError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

// ClearRange removes all values from rng.
func (c *Client) ClearRange(ctx context.Context, book, rng string) error {
	resp, err := c.request(ctx, book, rng).
		SetBody(map[string]any{}).
		Post("/v4/spreadsheets/{book}/values/{range}:clear")
	return check("sheets clear "+rng, resp, err)
}

// WriteRange overwrites rng starting at its top-left cell. option is Raw or
// UserEntered.
func (c *Client) WriteRange(ctx context.Context, book, rng string, values [][]any, option string) error {
	if option != Raw && option != UserEntered {
		return fmt.Errorf("unknown value input option %q", option)
	}
	if values == nil {
		values = [][]any{}
	}
	resp, err := c.request(ctx, book, rng).
		SetQueryParam("valueInputOption", option).
		SetBody(valueRange{Range: rng, MajorDimension: "ROWS", Values: values}).
		Put("/v4/spreadsheets/{book}/values/{range}")
	return check("sheets write "+rng, resp, err)
}

// ReadRange returns the formatted values of rng. Trailing empty cells and
// rows are omitted by the API.
func (c *Client) ReadRange(ctx context.Context, book, rng string) ([][]string, error) {
	var out struct {
		Values [][]string `json:"values"`
	}
	resp, err := c.request(ctx, book, rng).
		SetQueryParam("valueRenderOption", "FORMATTED_VALUE").
		SetResult(&out).
		Get("/v4/spreadsheets/{book}/values/{range}")
	if err := check("sheets read "+rng, resp, err); err != nil {
		return nil, err
	}
	return out.Values, nil
}
