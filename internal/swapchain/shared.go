package swapchain

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// Shared is a counted reference to a Manager. The frame orchestrator holds one
// reference to its live swapchain; recreation hands a second one to New so the
// old swapchain stays alive while its replacement is built. The manager is
// destroyed when the last reference is released.
//
// Holders other than the owner must treat the manager as read-only.
type Shared struct {
	manager  *Manager
	refs     *atomic.Int32
	released bool
}

func Share(m *Manager) *Shared {
	refs := &atomic.Int32{}
	refs.Store(1)
	return &Shared{manager: m, refs: refs}
}

// Retain returns a new reference to the same manager.
func (s *Shared) Retain() *Shared {
	if s.released {
		panic(errors.AssertionFailedf("retain of a released swapchain reference"))
	}
	s.refs.Add(1)
	return &Shared{manager: s.manager, refs: s.refs}
}

// Release drops this reference. Releasing twice is a programming error.
func (s *Shared) Release() {
	if s.released {
		panic(errors.AssertionFailedf("swapchain reference released twice"))
	}
	s.released = true
	if s.refs.Add(-1) == 0 {
		s.manager.Destroy()
	}
}

func (s *Shared) Manager() *Manager {
	return s.manager
}

func (s *Shared) Refs() int {
	return int(s.refs.Load())
}
