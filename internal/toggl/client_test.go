package toggl_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/toggl"
)

const reportCSV = "Client,Project,Tags,Description,Start date,Start time,End date,Duration\n" +
	"Acme,Web,dev,fix bug,2024-03-04,17:00:00,2024-03-05,10:30:00\n"

func TestFetchEvents(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/reports/api/v3/workspace/42/search/time_entries.csv" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "tok" || pass != "api_token" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(reportCSV))
	}))
	defer srv.Close()

	c := toggl.New(srv.URL, "tok", 42)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	tbl, err := c.FetchEvents(context.Background(), from, to)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if gotBody["start_date"] != "2024-03-01" || gotBody["end_date"] != "2024-03-08" {
		t.Errorf("request body = %v", gotBody)
	}
	if tbl.Name != "toggl_2024-03-01_2024-03-08.csv" {
		t.Errorf("Name = %q", tbl.Name)
	}
	if len(tbl.Rows) != 1 || len(tbl.Header) != 8 {
		t.Fatalf("table = %+v", tbl)
	}
}

func TestFetchEvents_ErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := toggl.New(srv.URL, "tok", 1)
	_, err := c.FetchEvents(context.Background(), time.Now(), time.Now())
	var ioErr *model.ExternalIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("got %v, want ExternalIOError", err)
	}
	if calls != 1 {
		t.Errorf("client errors must not be retried, got %d calls", calls)
	}
}

func TestFetchEvents_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(reportCSV))
	}))
	defer srv.Close()

	c := toggl.New(srv.URL, "tok", 1)
	c.SetRetryWait(time.Millisecond)
	tbl, err := c.FetchEvents(context.Background(), time.Now(), time.Now())
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if calls != 3 || len(tbl.Rows) != 1 {
		t.Errorf("calls = %d rows = %d", calls, len(tbl.Rows))
	}
}

func TestFetchEvents_NoWorkspace(t *testing.T) {
	c := toggl.New("http://127.0.0.1:0", "tok", 0)
	if _, err := c.FetchEvents(context.Background(), time.Now(), time.Now()); err == nil {
		t.Fatal("expected error without workspace id")
	}
}
