package images

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// ErrEmptyCatalog is returned when a catalog source yields no locators.
var ErrEmptyCatalog = errors.New("catalog has no image locators")

// ParseCatalog reads one locator per line. Blank lines and lines starting
// with '#' are skipped.
func ParseCatalog(r io.Reader) ([]string, error) {
	var locators []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		locators = append(locators, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if len(locators) == 0 {
		return nil, ErrEmptyCatalog
	}
	return locators, nil
}

// LoadCatalog reads a catalog from path. A directory is scanned for image
// files; anything else is parsed as a list of locators.
func LoadCatalog(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	if info.IsDir() {
		return scanDir(os.DirFS(path), path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer file.Close()
	return ParseCatalog(file)
}

// ScanFS lists image files in fsys, prefixing each with prefix.
func ScanFS(fsys fs.FS, prefix string) ([]string, error) {
	return scanDir(fsys, prefix)
}

func scanDir(fsys fs.FS, prefix string) ([]string, error) {
	var locators []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		locators = append(locators, joinLocator(prefix, p))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", prefix, err)
	}
	if len(locators) == 0 {
		return nil, ErrEmptyCatalog
	}
	sort.Strings(locators)
	return locators, nil
}

func joinLocator(prefix, p string) string {
	if strings.HasSuffix(prefix, "://") {
		return prefix + p
	}
	return filepath.Join(prefix, filepath.FromSlash(p))
}
