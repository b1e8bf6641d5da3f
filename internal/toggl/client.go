// Package toggl fetches detailed time entries from the Toggl Track
// Reports API v3 as CSV.
package toggl

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Tiliavir/nt-hours/internal/model"
)

const (
	DefaultBaseURL = "https://api.track.toggl.com"
	dateLayout     = "2006-01-02"
)

// Client is a Toggl Reports API client.
type Client struct {
	http        *resty.Client
	workspaceID int64
}

// New creates a client authenticating with apiToken. baseURL may be empty.
func New(baseURL, apiToken string, workspaceID int64) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(apiToken, "api_token").
		SetTimeout(60 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	return &Client{http: c, workspaceID: workspaceID}
}

type searchRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// FetchEvents returns the detailed report for the inclusive date range
// [from, to] in Toggl's native CSV schema.
func (c *Client) FetchEvents(ctx context.Context, from, to time.Time) (model.RawTable, error) {
	if c.workspaceID == 0 {
		return model.RawTable{}, &model.ExternalIOError{Op: "toggl fetch", Err: fmt.Errorf("workspace id not configured")}
	}
	name := fmt.Sprintf("toggl_%s_%s.csv", from.Format(dateLayout), to.Format(dateLayout))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv").
		SetBody(searchRequest{StartDate: from.Format(dateLayout), EndDate: to.Format(dateLayout)}).
		SetPathParam("workspace", fmt.Sprint(c.workspaceID)).
		Post("/reports/api/v3/workspace/{workspace}/search/time_entries.csv")
	if err != nil {
		return model.RawTable{}, &model.ExternalIOError{Op: "toggl fetch", Err: err}
	}
	if resp.IsError() {
		return model.RawTable{}, &model.ExternalIOError{
			Op:  "toggl fetch",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()),
		}
	}

	tbl, err := model.ReadCSV(name, bytes.NewReader(resp.Body()))
	if err != nil {
		return model.RawTable{}, &model.ExternalIOError{Op: "toggl fetch", Err: err}
	}
	return tbl, nil
}
