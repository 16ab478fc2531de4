package gputest

import (
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Surface is a scripted presentation surface. Extent pops Extents until one
// remains, which is then reported forever.
type Surface struct {
	Extents []core1_0.Extent2D
	Resized bool
	// OnWait, when set, runs inside WaitEvents as if the platform had
	// delivered events while blocked.
	OnWait func(s *Surface)

	Polls int
	Waits int
	Log   []string
}

func NewSurface(width, height int) *Surface {
	return &Surface{Extents: []core1_0.Extent2D{{Width: width, Height: height}}}
}

func (s *Surface) Extent() core1_0.Extent2D {
	s.Polls++
	extent := s.Extents[0]
	if len(s.Extents) > 1 {
		s.Extents = s.Extents[1:]
	}
	if extent.Width == 0 || extent.Height == 0 {
		s.Log = append(s.Log, "poll zero")
	} else {
		s.Log = append(s.Log, "poll")
	}
	return extent
}

func (s *Surface) WasResized() bool {
	return s.Resized
}

func (s *Surface) ResetResized() {
	s.Resized = false
}

func (s *Surface) WaitEvents() {
	s.Waits++
	s.Log = append(s.Log, "wait")
	if s.OnWait != nil {
		s.OnWait(s)
	}
}
