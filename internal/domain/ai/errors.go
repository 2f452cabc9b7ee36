package ai

import "errors"

// ErrUpstream indicates the generation endpoint was unreachable or answered
// with a non-success status.
var ErrUpstream = errors.New("generation endpoint failed")

// ErrEmptyResponse indicates the endpoint answered but produced no candidate.
var ErrEmptyResponse = errors.New("generation endpoint returned no candidate")
