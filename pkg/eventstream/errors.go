package eventstream

import "errors"

// ErrNilDreamEvent indicates a nil dream event payload was provided to a publisher.
var ErrNilDreamEvent = errors.New("nil dream event")
