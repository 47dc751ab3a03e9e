package usage

import "errors"

// ErrLimitReached indicates the client exhausted its analyses for the current window.
var ErrLimitReached = errors.New("limit reached")
