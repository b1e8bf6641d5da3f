// Package pipeline runs one source through fetch, normalize, merge and
// publish, archiving consumed raw inputs only once every write succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/nt-hours/internal/config"
	"github.com/Tiliavir/nt-hours/internal/ingest"
	"github.com/Tiliavir/nt-hours/internal/log"
	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/normalize"
	"github.com/Tiliavir/nt-hours/internal/publish"
	"github.com/Tiliavir/nt-hours/internal/reconcile"
	"github.com/Tiliavir/nt-hours/internal/storage"
)

// Run states, in the order a full run visits them.
const (
	StateFetchRaw         = "FETCH_RAW"
	StatePublishIfPresent = "PUBLISH_IF_PERSISTED_EXISTS"
	StateNormalize        = "NORMALIZE"
	StateMerge            = "MERGE"
	StateWriteRelational  = "WRITE_RELATIONAL"
	StatePublishSheet     = "PUBLISH_SPREADSHEET"
	StateArchiveConsumed  = "ARCHIVE_CONSUMED_RAW"
)

// Store is the persisted event table.
type Store interface {
	TableExists(ctx context.Context, name string) (bool, error)
	ReadEvents(ctx context.Context, name string) ([]model.Event, error)
	publish.Sink
}

// Session holds everything one run of one source needs. It is built once per
// run and discarded afterwards.
type Session struct {
	RunID      string
	Source     config.SourceConfig
	Raw        ingest.RawSource
	Normalizer normalize.Normalizer
	Store      Store
	Sheet      publish.Sheet
	Range      config.RangeConfig
	DryRun     bool
	// JournalDir, when set, receives the run report.
	JournalDir string
	Now        func() time.Time
}

// NewSession wires a session for src, selecting the normalizer by kind.
func NewSession(src config.SourceConfig, raw ingest.RawSource, store Store, sheet publish.Sheet, rc config.RangeConfig) (*Session, error) {
	n, err := normalize.ForKind(src.Kind)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Name, err)
	}
	return &Session{
		RunID:      uuid.NewString(),
		Source:     src,
		Raw:        raw,
		Normalizer: n,
		Store:      store,
		Sheet:      sheet,
		Range:      rc,
		Now:        time.Now,
	}, nil
}

func (s *Session) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Run executes one full run and returns its report. The returned error is
// also recorded in the report.
func (s *Session) Run(ctx context.Context) (model.RunReport, error) {
	rep := model.RunReport{
		RunID:   s.RunID,
		Source:  s.Source.Name,
		Started: s.now(),
		DryRun:  s.DryRun,
	}
	err := s.run(ctx, &rep)
	rep.Finished = s.now()
	if err != nil {
		rep.Error = err.Error()
		log.Error("run failed", err, "run", s.RunID, "source", s.Source.Name, "state", last(rep.States))
	} else {
		log.Info("run finished", "run", s.RunID, "source", s.Source.Name,
			"incoming", rep.Incoming, "merged", rep.Merged, "changed", rep.Changed,
			"published", rep.Published, "archived", rep.Archived)
	}
	if s.JournalDir != "" {
		if jerr := storage.AppendRun(s.JournalDir, rep); jerr != nil {
			log.Error("writing run journal", jerr, "run", s.RunID)
		}
	}
	return rep, err
}

func (s *Session) run(ctx context.Context, rep *model.RunReport) error {
	enter := func(state string) {
		rep.States = append(rep.States, state)
		log.Debug("state", "run", s.RunID, "source", s.Source.Name, "state", state)
	}

	enter(StateFetchRaw)
	inputs, err := s.Raw.Fetch(ctx)
	if err != nil {
		return err
	}

	persisted, exists, err := s.loadPersisted(ctx)
	if err != nil {
		return err
	}
	rep.Persisted = len(persisted)

	if len(inputs) == 0 {
		enter(StatePublishIfPresent)
		rep.Merged = len(persisted)
		if !exists || s.DryRun {
			return nil
		}
		n, err := s.publish(ctx, persisted)
		rep.Published = n
		return err
	}

	enter(StateNormalize)
	var incoming []model.Event
	var consumed []ingest.RawInput
	for _, in := range inputs {
		var events []model.Event
		err := in.Err
		if err == nil {
			events, err = s.Normalizer.Normalize(in.Table)
		}
		res := model.TableResult{Name: in.Table.Name, Events: len(events)}
		if err != nil {
			res.Error = err.Error()
			log.Error("skipping raw table", err, "run", s.RunID, "table", in.Table.Name)
		} else {
			incoming = append(incoming, events...)
			consumed = append(consumed, in)
		}
		rep.Tables = append(rep.Tables, res)
	}
	rep.Incoming = len(incoming)

	enter(StateMerge)
	res, err := reconcile.Reconcile(persisted, exists, incoming)
	if err != nil {
		return err
	}
	rep.Merged = len(res.Events)
	rep.Changed = res.Changed

	if s.DryRun {
		return nil
	}

	if res.Changed {
		enter(StateWriteRelational)
		if err := publish.WriteRelational(ctx, s.Store, s.Source.Table, res.Events); err != nil {
			return err
		}
	}

	if exists || res.Changed {
		enter(StatePublishSheet)
		n, err := s.publish(ctx, res.Events)
		rep.Published = n
		if err != nil {
			return err
		}
	}

	enter(StateArchiveConsumed)
	if err := s.Raw.Archive(ctx, consumed); err != nil {
		return err
	}
	rep.Archived = len(consumed)
	return nil
}

// Publish republishes the persisted events without fetching anything.
func (s *Session) Publish(ctx context.Context) (int, error) {
	persisted, exists, err := s.loadPersisted(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("table %s does not exist yet; run update first", s.Source.Table)
	}
	return s.publish(ctx, persisted)
}

func (s *Session) loadPersisted(ctx context.Context) ([]model.Event, bool, error) {
	exists, err := s.Store.TableExists(ctx, s.Source.Table)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}
	events, err := s.Store.ReadEvents(ctx, s.Source.Table)
	if err != nil {
		return nil, true, err
	}
	return events, true, nil
}

func (s *Session) publish(ctx context.Context, events []model.Event) (int, error) {
	if s.Sheet == nil {
		return 0, errors.New("no spreadsheet configured")
	}
	return publish.Publish(ctx, s.Sheet, s.Range, events, s.Source.WindowYears)
}

func last(states []string) string {
	if len(states) == 0 {
		return ""
	}
	return states[len(states)-1]
}
