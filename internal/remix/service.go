package remix

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remix/internal/delta"
	"remix/internal/metrics"
	"remix/internal/segment"
	"remix/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service runs the fork lifecycle (create, view, edit, sync) on top of a Store.
type Service struct {
	store    storage.Store
	log      *logrus.Logger
	recorder metrics.Recorder
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithLogger(l *logrus.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		log:      logrus.New(),
		recorder: metrics.NoopRecorder{},
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View is the effective content of a fork.
type View struct {
	Fork     *storage.Fork
	Original *storage.Document
	Segments []segment.Segment
	Report   delta.Report
	// Stale is set when upstream has changed since the fork last synced.
	Stale bool
	// Pruned counts the deltas Sync dropped as orphaned.
	Pruned int
}

// Publish stores an upstream document and returns its revision.
func (s *Service) Publish(ctx context.Context, doc *storage.Document) (rev int64, err error) {
	defer s.observe("publish", s.now(), &err)

	rev, err = s.store.SaveDocument(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("failed to publish document: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"document": doc.ID,
		"owner":    doc.OwnerID,
		"revision": rev,
	}).Info("document published")
	return rev, nil
}

// CreateFork creates an empty fork of originalID owned by ownerID.
func (s *Service) CreateFork(ctx context.Context, ownerID, originalID string) (fork *storage.Fork, err error) {
	defer s.observe("create_fork", s.now(), &err)

	doc, err := s.store.GetDocument(ctx, originalID)
	if err != nil {
		return nil, err
	}

	fork = &storage.Fork{
		ID:           s.newID(),
		OwnerID:      ownerID,
		OriginalID:   originalID,
		Deltas:       []delta.Delta{},
		BaseRevision: doc.Revision,
	}
	if err := s.store.CreateFork(ctx, fork); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"fork":     fork.ID,
		"owner":    ownerID,
		"document": originalID,
		"revision": doc.Revision,
	}).Info("fork created")
	return fork, nil
}

// Fork returns the stored fork without replaying it.
func (s *Service) Fork(ctx context.Context, ownerID, forkID string) (*storage.Fork, error) {
	return s.store.GetFork(ctx, ownerID, forkID)
}

func (s *Service) ListForks(ctx context.Context, ownerID string) ([]*storage.Fork, error) {
	return s.store.ListForks(ctx, ownerID)
}

// View reconstructs the fork's effective content from the latest original.
func (s *Service) View(ctx context.Context, ownerID, forkID string) (view *View, err error) {
	defer s.observe("view", s.now(), &err)

	fork, doc, err := s.load(ctx, ownerID, forkID)
	if err != nil {
		return nil, err
	}
	return s.render(fork, doc), nil
}

// SaveEdit replaces the fork's deltas with the diff between the latest
// original and the edited tree.
func (s *Service) SaveEdit(ctx context.Context, ownerID, forkID string, edited []segment.Segment) (fork *storage.Fork, err error) {
	defer s.observe("save_edit", s.now(), &err)

	if err := segment.Validate(edited); err != nil {
		return nil, fmt.Errorf("invalid edited tree: %w", err)
	}
	fork, doc, err := s.load(ctx, ownerID, forkID)
	if err != nil {
		return nil, err
	}

	deltas := delta.ComputeAt(doc.Segments, edited, s.now())
	version, err := s.store.SaveForkDeltas(ctx, ownerID, forkID, deltas, doc.Revision, fork.Version)
	if err != nil {
		return nil, err
	}
	fork.Deltas = deltas
	fork.BaseRevision = doc.Revision
	fork.Version = version

	s.log.WithFields(logrus.Fields{
		"fork":    forkID,
		"owner":   ownerID,
		"deltas":  len(deltas),
		"version": version,
	}).Info("fork edit saved")
	return fork, nil
}

// Sync drops deltas orphaned by upstream changes, persists the rest and
// returns the refreshed view.
func (s *Service) Sync(ctx context.Context, ownerID, forkID string) (view *View, err error) {
	defer s.observe("sync", s.now(), &err)

	fork, doc, err := s.load(ctx, ownerID, forkID)
	if err != nil {
		return nil, err
	}

	kept := delta.Prune(fork.Deltas, doc.Segments)
	pruned := len(fork.Deltas) - len(kept)
	version, err := s.store.SaveForkDeltas(ctx, ownerID, forkID, kept, doc.Revision, fork.Version)
	if err != nil {
		return nil, err
	}
	fork.Deltas = kept
	fork.BaseRevision = doc.Revision
	fork.Version = version
	s.recorder.IncDeltasPruned(pruned)

	s.log.WithFields(logrus.Fields{
		"fork":     forkID,
		"owner":    ownerID,
		"document": doc.ID,
		"revision": doc.Revision,
		"pruned":   pruned,
		"kept":     len(kept),
	}).Info("fork synced")
	view = s.render(fork, doc)
	view.Pruned = pruned
	return view, nil
}

func (s *Service) load(ctx context.Context, ownerID, forkID string) (*storage.Fork, *storage.Document, error) {
	fork, err := s.store.GetFork(ctx, ownerID, forkID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.store.GetDocument(ctx, fork.OriginalID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load original of fork %s: %w", forkID, err)
	}
	return fork, doc, nil
}

func (s *Service) render(fork *storage.Fork, doc *storage.Document) *View {
	segments, report := delta.ApplyWithReport(doc.Segments, fork.Deltas)
	s.recorder.IncDeltasApplied(report.Applied)
	for _, skip := range report.Skipped {
		s.recorder.IncDeltasSkipped(string(skip.Reason))
		s.log.WithFields(logrus.Fields{
			"fork":   fork.ID,
			"op":     skip.Delta.Op(),
			"target": skip.Delta.Target(),
			"reason": skip.Reason,
		}).Debug("delta skipped")
	}
	return &View{
		Fork:     fork,
		Original: doc,
		Segments: segments,
		Report:   report,
		Stale:    doc.Revision > fork.BaseRevision,
	}
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	result := metrics.ResultSuccess
	if *errp != nil {
		result = metrics.ResultFailed
		if errors.Is(*errp, storage.ErrConflict) {
			s.recorder.IncConflict()
		}
		s.log.WithFields(logrus.Fields{"op": op}).WithError(*errp).Warn("operation failed")
	}
	s.recorder.ObserveOperation(op, s.now().Sub(start), result)
}
