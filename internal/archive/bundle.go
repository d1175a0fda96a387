package archive

import (
	"encoding/json"
	"strings"

	"github.com/FocuswithJustin/Lectern/core/errors"
)

// ManifestName is the metadata file written into every bundle.
const ManifestName = "lecture.json"

// Manifest describes a packed lecture.
type Manifest struct {
	Title     string `json:"title"`
	Source    string `json:"source,omitempty"`
	Generator string `json:"generator,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// BundleID strips the bundle extensions from a filename.
func BundleID(filename string) string {
	for _, ext := range []string{".tar.xz", ".tar.gz", ".tar"} {
		if strings.HasSuffix(filename, ext) {
			return strings.TrimSuffix(filename, ext)
		}
	}
	return filename
}

// DetectFormat detects the bundle format from the file extension.
func DetectFormat(path string) string {
	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		return "tar.xz"
	case strings.HasSuffix(path, ".tar.gz"):
		return "tar.gz"
	default:
		return "unknown"
	}
}

// IsSupportedFormat returns true if the file has a supported bundle
// extension.
func IsSupportedFormat(path string) bool {
	return DetectFormat(path) != "unknown"
}

// ReadManifest reads and decodes the manifest of a bundle.
func ReadManifest(path string) (*Manifest, error) {
	content, err := ReadFile(path, ManifestName)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(content, &m); err != nil {
		return nil, errors.NewParse("JSON", path, err.Error())
	}
	return &m, nil
}
