package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dolverin/Anime-Library/pkg/interfaces"
)

// DefaultExtensions are the container formats picked up when none are
// configured.
var DefaultExtensions = []string{".mkv", ".mp4", ".avi"}

// Scanner enumerates media files below a root directory
type Scanner struct {
	logger     interfaces.Logger
	extensions map[string]bool
}

// NewScanner creates a new scanner. Extensions are matched case-insensitively
// and must include the leading dot.
func NewScanner(logger interfaces.Logger, extensions ...string) *Scanner {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Scanner{
		logger:     logger,
		extensions: allowed,
	}
}

// ScanDirectory walks root recursively and returns every allow-listed file in
// lexical path order. Unreadable entries are logged and skipped; only a
// failure to read root itself is returned.
func (s *Scanner) ScanDirectory(root string) ([]*MediaFile, error) {
	var files []*MediaFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.logger.Warn("Error accessing path",
				interfaces.String("path", path),
				interfaces.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip hidden files and directories
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !s.IsVideoFile(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Warn("Error reading file info",
				interfaces.String("path", path),
				interfaces.Error(err))
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		files = append(files, &MediaFile{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})

	return files, err
}

// IsVideoFile checks if a file has an allow-listed extension
func (s *Scanner) IsVideoFile(filename string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(filename))]
}

// HashFile returns the hex SHA-256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
