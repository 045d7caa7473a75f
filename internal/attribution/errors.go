package attribution

import "errors"

// Error kinds. All are fatal to the current image or technique but leave
// the network untouched: callers release the failed method's hooks and
// continue with the next run.
var (
	// ErrLayerNotFound reports a target or hooked layer absent from the
	// network.
	ErrLayerNotFound = errors.New("layer not found")

	// ErrInvalidState reports a lifecycle violation: generate before
	// backward, backward before forward, or use after cleanup.
	ErrInvalidState = errors.New("invalid lifecycle state")

	// ErrShapeMismatch reports batch or class-index dimensions inconsistent
	// with the network's input or output size.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDeviceMismatch reports tensors split across incompatible devices.
	ErrDeviceMismatch = errors.New("device mismatch")
)
