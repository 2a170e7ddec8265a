package storage

import (
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/pdf-splitter/models"
)

const ResourceScheme = "split://"

// ResourceURI is the MCP resource address of a stored artifact.
func ResourceURI(name string) string {
	return ResourceScheme + name
}

// NameFromURI reverses ResourceURI.
func NameFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, ResourceScheme) {
		return "", fmt.Errorf("invalid URI scheme, expected %s", ResourceScheme)
	}
	name := strings.TrimPrefix(uri, ResourceScheme)
	if name == "" {
		return "", fmt.Errorf("invalid URI, missing artifact name")
	}
	return name, nil
}

// CalculateResourcePaths generates the resource URIs for every file in a
// manifest, in manifest order.
func CalculateResourcePaths(manifest *models.SplitManifest) []string {
	resourcePaths := make([]string, 0, len(manifest.Files))
	for _, f := range manifest.Files {
		resourcePaths = append(resourcePaths, ResourceURI(f.Name))
	}
	return resourcePaths
}
