package sourcegrid

import "errors"

var (
	// ErrInvalidParams indicates non-physical grid parameters
	// (non-positive spacing, non-finite rotation or origin, or
	// non-positive dimensions). Never retried.
	ErrInvalidParams = errors.New("sourcegrid: invalid grid parameters")

	// ErrInsufficientData indicates too few valid neighbor samples to
	// estimate grid spacing or rotation. No partial estimate is
	// returned.
	ErrInsufficientData = errors.New("sourcegrid: insufficient data for grid estimation")

	// ErrNotConverged indicates the local refinement stage stopped
	// without convergence. The fit result returned alongside this
	// error is the last iterate; the caller decides whether to accept
	// it.
	ErrNotConverged = errors.New("sourcegrid: grid fit did not converge")
)
