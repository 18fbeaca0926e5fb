// Package storage provides object storage for uploaded note files and the
// deterministic key assignment that namespaces objects per owner.
package storage

import "context"

// ObjectStorage abstracts the blob store holding uploaded files.
type ObjectStorage interface {
	// Put writes the object at key. Overwrites are possible; callers rely on
	// the database unique constraint on the key to reject duplicates.
	Put(ctx context.Context, key string, body []byte, contentType string) error
	// GetURL returns a short-lived URL from which the object can be fetched.
	GetURL(ctx context.Context, key string) (string, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
