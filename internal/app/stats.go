package app

import (
	"time"

	"github.com/loov/hrtime"
	log "github.com/sirupsen/logrus"
)

// frameStats accumulates frame times and logs a summary once per interval.
type frameStats struct {
	log      log.FieldLogger
	interval time.Duration

	windowStart time.Duration
	frames      int
	slowest     time.Duration
}

func newFrameStats(logger log.FieldLogger, interval time.Duration) *frameStats {
	return &frameStats{
		log:         logger,
		interval:    interval,
		windowStart: hrtime.Now(),
	}
}

// Frame records one frame that took delta and reports whether a summary was
// logged.
func (s *frameStats) Frame(now, delta time.Duration, fields log.Fields) bool {
	if s.interval <= 0 {
		return false
	}

	s.frames++
	if delta > s.slowest {
		s.slowest = delta
	}

	elapsed := now - s.windowStart
	if elapsed < s.interval {
		return false
	}

	entry := s.log.WithFields(fields).WithFields(log.Fields{
		"fps":     float64(s.frames) / elapsed.Seconds(),
		"slowest": s.slowest.String(),
	})
	entry.Info("frame statistics")

	s.windowStart = now
	s.frames = 0
	s.slowest = 0
	return true
}
