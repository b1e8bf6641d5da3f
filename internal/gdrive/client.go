// Package gdrive lists, downloads and relocates files in Google Drive folders.
package gdrive

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Tiliavir/nt-hours/internal/model"
)

const (
	DefaultBaseURL = "https://www.googleapis.com"
	MimeCSV        = "text/csv"
	pageSize       = "100"
)

// File is a Drive file reference.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is a Drive v3 client.
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

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &model.ExternalIOError{Op: op, Err: err}
	}
	if resp.IsError() {
		return &model.ExternalIOError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

// quote escapes a value for a Drive query string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

type listResponse struct {
	Files         []File `json:"files"`
	NextPageToken string `json:"nextPageToken"`
}

// ListFiles returns the non-trashed files directly inside folder with the
// given MIME type, following pagination.
func (c *Client) ListFiles(ctx context.Context, folder, mime string) ([]File, error) {
	q := fmt.Sprintf("%s in parents and trashed = false", quote(folder))
	if mime != "" {
		q += fmt.Sprintf(" and mimeType = %s", quote(mime))
	}

	var all []File
	token := ""
	for {
		var page listResponse
		req := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"q":        q,
				"fields":   "nextPageToken,files(id,name)",
				"pageSize": pageSize,
				"orderBy":  "name",
			}).
			SetResult(&page)
		if token != "" {
			req.SetQueryParam("pageToken", token)
		}
		resp, err := req.Get("/drive/v3/files")
		if err := check("drive list "+folder, resp, err); err != nil {
			return nil, err
		}
		all = append(all, page.Files...)
		if page.NextPageToken == "" {
			return all, nil
		}
		token = page.NextPageToken
	}
}

// Download returns the content of file id.
func (c *Client) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParam("alt", "media").
		Get("/drive/v3/files/{id}")
	if err := check("drive download "+id, resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Move relocates every file in ids from one folder to another. It stops at
// the first failure; files moved before it stay moved.
func (c *Client) Move(ctx context.Context, ids []string, from, to string) error {
	for _, id := range ids {
		resp, err := c.http.R().
			SetContext(ctx).
			SetPathParam("id", id).
			SetQueryParams(map[string]string{
				"addParents":    to,
				"removeParents": from,
				"fields":        "id,parents",
			}).
			SetBody(map[string]any{}).
			Patch("/drive/v3/files/{id}")
		if err := check("drive move "+id, resp, err); err != nil {
			return err
		}
	}
	return nil
}
