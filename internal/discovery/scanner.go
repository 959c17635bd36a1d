package discovery

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"subfuse/internal/config"
	"subfuse/internal/logging"
)

// Scanner finds media files eligible for transcription under the configured
// library directories.
type Scanner struct {
	cfg    config.Discovery
	logger *slog.Logger
}

// NewScanner creates a library scanner.
func NewScanner(cfg config.Discovery, logger *slog.Logger) *Scanner {
	return &Scanner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "discovery"),
	}
}

// Scan walks every configured directory and returns the matching media paths,
// sorted and deduplicated. Directories that do not exist are skipped with a
// warning rather than failing the scan.
func (s *Scanner) Scan() ([]string, error) {
	seen := make(map[string]struct{})
	var found []string

	for _, dir := range s.cfg.Dirs {
		root, err := config.ExpandPath(dir)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			s.logger.Warn("scan directory unavailable, skipping", logging.String("dir", dir))
			continue
		}

		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Warn("walk error, skipping entry",
					logging.String("path", path), logging.Error(err))
				if entry != nil && entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if entry.IsDir() {
				if s.excludedDir(entry.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !s.Eligible(path) {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			found = append(found, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(found)
	s.logger.Info("scan complete", logging.Int("found", len(found)))
	return found, nil
}

// Eligible reports whether a single path looks like processable media: a
// configured extension, not inside an excluded directory, and not a sample
// file when samples are skipped.
func (s *Scanner) Eligible(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !s.matchesExtension(ext) {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if s.cfg.SkipSamples && isSample(base) {
		return false
	}
	for _, part := range strings.Split(filepath.Dir(path), string(filepath.Separator)) {
		if s.excludedDir(part) {
			return false
		}
	}
	return true
}

func (s *Scanner) matchesExtension(ext string) bool {
	for _, allowed := range s.cfg.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *Scanner) excludedDir(name string) bool {
	for _, excluded := range s.cfg.ExcludeDirs {
		if strings.EqualFold(name, excluded) {
			return true
		}
	}
	return false
}

// isSample matches the release-group convention of shipping a short preview
// clip next to the feature.
func isSample(base string) bool {
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "sample" {
		return true
	}
	return strings.HasPrefix(stem, "sample-") || strings.HasPrefix(stem, "sample.") ||
		strings.HasSuffix(stem, "-sample") || strings.HasSuffix(stem, ".sample")
}
