package keys

import "errors"

// ErrInvalidKey indicates the submitted access code matches no stored key.
// Distinct from infrastructure errors so the boundary can answer 401 vs 500.
var ErrInvalidKey = errors.New("invalid access key")
