package swapchain

import (
	"github.com/cockroachdb/errors"
)

// Error categories. Out-of-date and suboptimal are not errors; they are reported
// through gpu.Status. Anything marked with one of these is fatal to the frame loop.
var (
	ErrCreate  = errors.New("swapchain creation failed")
	ErrAcquire = errors.New("swapchain image acquisition failed")
	ErrSubmit  = errors.New("command buffer submission failed")
	ErrPresent = errors.New("swapchain presentation failed")
)

func markf(err error, kind error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), kind)
}
