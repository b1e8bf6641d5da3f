// Package normalize converts source-specific raw tables into canonical events.
//
// Normalization is all-or-nothing per table: the first malformed row fails the
// whole table with a *model.SchemaError or *model.ParseError and no events are
// returned for it.
package normalize

import (
	"fmt"
	"sort"

	"github.com/Tiliavir/nt-hours/internal/model"
)

// Kinds of raw tables understood by this package.
const (
	KindNowThen = "nowthen"
	KindToggl   = "toggl"
)

const (
	// ActivityDelim joins the parent and child parts of an activity label.
	ActivityDelim = "#"
	// TagDelim separates a tag prefix from the free-text comment.
	TagDelim = " - "
)

// Normalizer converts one raw table into annotated canonical events.
type Normalizer interface {
	Normalize(t model.RawTable) ([]model.Event, error)
}

var registry = map[string]Normalizer{
	KindNowThen: NowThen{},
	KindToggl:   Toggl{DayTolerance: DefaultDayTolerance},
}

// ForKind returns the normalizer registered for kind.
func ForKind(kind string) (Normalizer, error) {
	n, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown source kind %q (known: %v)", kind, Kinds())
	}
	return n, nil
}

// Kinds lists the registered source kinds.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func activity(parent, child string) string {
	return parent + ActivityDelim + child
}
