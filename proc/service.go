package proc

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/sys"
	"github.com/samber/mo"
)

// PanelStore is the read side of the config store the core needs.
type PanelStore interface {
	GetPanel(ctx context.Context, kind sys.PanelKind, messageID snowflake.ID) (mo.Option[sys.Panel], error)
	ListPanels(ctx context.Context, guildID snowflake.ID, kind sys.PanelKind) ([]sys.Panel, error)
	GetAutorole(ctx context.Context, guildID snowflake.ID) (mo.Option[snowflake.ID], error)
}

// Service ties the store and the directory to the live, sweep, button and
// autorole flows.
type Service struct {
	store   PanelStore
	pacing  func() Pacing
	workers int

	mu  sync.RWMutex
	dir Directory
}

type ServiceOpt func(*Service)

// WithPacing replaces the gate factory. Each sweep asks for a fresh set.
func WithPacing(f func() Pacing) ServiceOpt {
	return func(s *Service) { s.pacing = f }
}

func WithSweepWorkers(n int) ServiceOpt {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithDirectory(dir Directory) ServiceOpt {
	return func(s *Service) { s.dir = dir }
}

func NewService(store PanelStore, opts ...ServiceOpt) *Service {
	s := &Service{
		store:   store,
		pacing:  DefaultPacing,
		workers: 2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach sets the directory once the client exists.
func (s *Service) Attach(dir Directory) {
	s.mu.Lock()
	s.dir = dir
	s.mu.Unlock()
}

func (s *Service) Directory() Directory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}

// liveEngine never waits: single events only touch one member.
func (s *Service) liveEngine() *Engine {
	return NewEngine(s.Directory(), UnpacedPacing())
}
