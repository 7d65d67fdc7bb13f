package main

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/Tutortoise/inference-benchmark/images"
)

//go:embed assets/catalog.txt assets/images
var embeddedFiles embed.FS

// embeddedAssets serves embed:// locators. Paths are relative to assets/.
func embeddedAssets() fs.FS {
	sub, err := fs.Sub(embeddedFiles, "assets")
	if err != nil {
		// only fails for an invalid literal path
		panic(err)
	}
	return sub
}

// resolveCatalog returns the locators named by path, or the embedded
// default catalog when path is empty.
func resolveCatalog(path string) ([]string, error) {
	if path != "" {
		return images.LoadCatalog(path)
	}

	file, err := embeddedFiles.Open("assets/catalog.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded catalog: %w", err)
	}
	defer file.Close()

	return images.ParseCatalog(file)
}
