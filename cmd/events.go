package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/timecalc"
)

// sourceEvents is the persisted event set of one source.
type sourceEvents struct {
	Source string        `json:"source"`
	Events []model.Event `json:"events"`
}

// loadEvents reads the persisted events of the selected sources. Sources
// whose table does not exist yet are skipped.
func loadEvents(ctx context.Context, source string) ([]sourceEvents, error) {
	sources, err := selectSources(source)
	if err != nil {
		return nil, err
	}
	a, err := openApp(ctx, false)
	if err != nil {
		return nil, err
	}
	defer a.close()

	var out []sourceEvents
	for _, src := range sources {
		exists, err := a.store.TableExists(ctx, src.Table)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		events, err := a.store.ReadEvents(ctx, src.Table)
		if err != nil {
			return nil, err
		}
		out = append(out, sourceEvents{Source: src.Name, Events: events})
	}
	return out, nil
}

// between keeps events whose timestamp falls in [from, to].
func between(events []model.Event, from, to time.Time) []model.Event {
	var out []model.Event
	for _, e := range events {
		if !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			out = append(out, e)
		}
	}
	return out
}

// referenceDate parses a --date flag value, defaulting to today's wall clock.
func referenceDate(flag string) time.Time {
	if flag == "" {
		return timecalc.Naive(time.Now())
	}
	d, err := timecalc.ParseDate("2006-01-02", flag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --date value %q: %v\n", flag, err)
		os.Exit(1)
	}
	return d
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
