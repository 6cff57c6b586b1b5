package config

import (
	"strings"
)

// GetUploadMaxBytes returns the maximum accepted resume size. The backend
// enforces its own 5MB cap; the gateway pre-checks so oversized files are
// rejected before the proxy round trip.
func GetUploadMaxBytes() int64 {
	return int64(parseEnvInt("UPLOAD_MAX_BYTES", 5*1024*1024))
}

// GetUploadAllowedExtensions returns the lowercase file extensions accepted
// for resume uploads, including the leading dot.
func GetUploadAllowedExtensions() []string {
	raw := GetEnvOrDefault("UPLOAD_ALLOWED_EXTENSIONS", ".pdf,.txt,.doc,.docx")

	parts := strings.Split(raw, ",")
	exts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, ".") {
			p = "." + p
		}
		exts = append(exts, p)
	}
	return exts
}
