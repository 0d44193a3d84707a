package handler

import (
	"fmt"
	"net/http"
)

// GenerateETag builds an ETag from a resource type and a content digest.
// Format: "<resource_type>-<digest>"
func GenerateETag(resourceType, digest string) string {
	return fmt.Sprintf(`"%s-%s"`, resourceType, digest)
}

// SetETagHeader sets the ETag header on the response.
func SetETagHeader(w http.ResponseWriter, resourceType, digest string) {
	w.Header().Set("ETag", GenerateETag(resourceType, digest))
}
