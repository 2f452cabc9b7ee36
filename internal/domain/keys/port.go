package keys

import "context"

// Repository port for resolving access codes. Resolve compares the trimmed
// code against the stored value; when more than one key carries the same code
// the first match in the store's natural order wins.
type Repository interface {
	Resolve(ctx context.Context, code string) (*AccessKey, error)
}
