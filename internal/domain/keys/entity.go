package keys

// KeyID identifier type
type KeyID string

// AccessKey represents a provisioned invite credential. Keys are created
// out-of-band by an administrator; this service only ever reads them.
type AccessKey struct {
	ID   KeyID  `json:"id"`
	Code string `json:"code"`
}
