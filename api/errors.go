package api

import "errors"

// ErrAnswererRequired is returned when no pipeline is supplied.
var ErrAnswererRequired = errors.New("answerer required")
