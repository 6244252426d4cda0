package config

import "errors"

// ErrConfiguration marks a missing mandatory credential or an out-of-range
// parameter. Unlike source failures it is fatal: nothing is dispatched.
var ErrConfiguration = errors.New("configuration error")
