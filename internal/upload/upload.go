// Package upload moves finished downloads to their destination backend.
package upload

import "context"

// Service uploads a finished download directory and returns a URL-ish
// locator for the uploaded data.
type Service interface {
	UploadDirectory(ctx context.Context, localPath, keyPrefix string) (string, error)
}
