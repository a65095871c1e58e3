// ABOUTME: Application service tying the entity store to the remote mirror
// ABOUTME: Every committed mutation is pushed in the background; failures become notifications
package crm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/advisor-crm/mirror"
	"github.com/harperreed/advisor-crm/store"
)

// DefaultPushTimeout bounds a single background mirror push.
const DefaultPushTimeout = 30 * time.Second

// Service is what the CLI, MCP handlers, board and web server talk to.
type Service struct {
	store       *store.Store
	mirror      *mirror.Mirror
	notifier    *Notifier
	logger      *log.Logger
	pushTimeout time.Duration

	wg        sync.WaitGroup
	mu        sync.RWMutex
	listeners []Listener
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPushTimeout bounds each background push.
func WithPushTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pushTimeout = d
		}
	}
}

// WithNotifier replaces the default notifier.
func WithNotifier(n *Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// New builds a service. A nil or disabled mirror runs in local-only mode.
func New(st *store.Store, m *mirror.Mirror, opts ...Option) *Service {
	s := &Service{
		store:       st,
		mirror:      m,
		logger:      log.Default(),
		pushTimeout: DefaultPushTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewNotifier(0)
	}
	return s
}

// Store exposes the underlying store for read-only views.
func (s *Service) Store() *store.Store { return s.store }

// Notifier returns the service's notifier.
func (s *Service) Notifier() *Notifier { return s.notifier }

// MirrorEnabled reports whether pushes go anywhere.
func (s *Service) MirrorEnabled() bool { return s.mirror.Enabled() }

// Subscribe registers a listener for change events.
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Service) emit(e Event) {
	if e.At.IsZero() {
		e.At = s.store.Now()
	}
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(e)
	}
}

// Wait blocks until every in-flight push has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// background runs op against the mirror on its own goroutine. The local
// write has already committed, so a failure only produces a warning.
func (s *Service) background(what string, op func(ctx context.Context) error) {
	if !s.mirror.Enabled() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
		defer cancel()
		if err := op(ctx); err != nil {
			s.logger.Warn("mirror push failed", "record", what, "err", err)
			s.notifier.Notify(LevelWarning, fmt.Sprintf("Failed to sync %s to remote: %v", what, err))
		}
	}()
}

func push[T any](s *Service, k mirror.Kind[T], v T) {
	s.background(k.Path(k.ID(v)), func(ctx context.Context) error {
		return mirror.Save(ctx, s.mirror, k, v)
	})
}

func pushDelete[T any](s *Service, k mirror.Kind[T], id int64) {
	s.background(k.Path(id), func(ctx context.Context) error {
		return mirror.Delete(ctx, s.mirror, k, id)
	})
}

// PushAll synchronously pushes every local record of the mirrored
// collections and returns how many were written.
func (s *Service) PushAll(ctx context.Context) (int, error) {
	if !s.mirror.Enabled() {
		return 0, mirror.ErrDisabled
	}
	var errs []error
	n := 0
	n += pushEach(ctx, s, mirror.Clients, s.store.Clients.All(), &errs)
	n += pushEach(ctx, s, mirror.Meetings, s.store.Meetings.All(), &errs)
	n += pushEach(ctx, s, mirror.Tasks, s.store.Tasks.All(), &errs)
	n += pushEach(ctx, s, mirror.Potentials, s.store.Potentials.All(), &errs)
	n += pushEach(ctx, s, mirror.Analyses, s.store.Analyses.All(), &errs)
	return n, errors.Join(errs...)
}

func pushEach[T any](ctx context.Context, s *Service, k mirror.Kind[T], records []T, errs *[]error) int {
	n := 0
	for _, v := range records {
		if err := mirror.Save(ctx, s.mirror, k, v); err != nil {
			*errs = append(*errs, err)
			continue
		}
		n++
	}
	return n
}

// PullResult counts the records loaded per collection.
type PullResult map[string]int

// Pull replaces the local records of each mirrored collection with the
// remote copies. A collection with no remote records is left untouched.
func (s *Service) Pull(ctx context.Context) (PullResult, error) {
	if !s.mirror.Enabled() {
		return nil, mirror.ErrDisabled
	}
	res := PullResult{}
	steps := []func() error{
		func() error { return pullKind(ctx, s, mirror.Clients, s.store.Clients, res) },
		func() error { return pullKind(ctx, s, mirror.Meetings, s.store.Meetings, res) },
		func() error { return pullKind(ctx, s, mirror.Tasks, s.store.Tasks, res) },
		func() error { return pullKind(ctx, s, mirror.Potentials, s.store.Potentials, res) },
		func() error { return pullKind(ctx, s, mirror.Analyses, s.store.Analyses, res) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return res, err
		}
	}
	return res, nil
}

type replacer[T any] interface {
	ReplaceAll(records []T) error
}

func pullKind[T any](ctx context.Context, s *Service, k mirror.Kind[T], c replacer[T], res PullResult) error {
	records, err := mirror.GetAll(ctx, s.mirror, k)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		s.logger.Info("no remote records, keeping local copy", "collection", k.Dir)
		return nil
	}
	if err := c.ReplaceAll(records); err != nil {
		return fmt.Errorf("failed to replace %s: %w", k.Dir, err)
	}
	res[k.Dir] = len(records)
	s.logger.Info("pulled collection", "collection", k.Dir, "records", len(records))
	return nil
}

// InitMirror creates the README of every mirrored directory.
func (s *Service) InitMirror(ctx context.Context) ([]string, error) {
	return s.mirror.Init(ctx)
}
