// Package artifact lays out job files on disk: raw uploads, per-job
// scratch directories and final translated outputs.
package artifact

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/contextual-comic-translator/pkg/file"
	"github.com/MimeLyc/contextual-comic-translator/pkg/log"
)

// allowedExts is the upload allowlist. Anything else is rejected
// before a job is created.
var allowedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
}

// encodableExts are the extensions we can write back out. Inputs
// outside this set (gif, webp) produce PNG outputs.
var encodableExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".pdf":  true,
}

// Store manages the upload, work and output directories. All paths
// handed out are keyed by job ID so cleanup never needs a database
// lookup.
type Store struct {
	uploadDir string
	workDir   string
	outputDir string
}

func NewStore(uploadDir, workDir, outputDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, workDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
		}
	}
	return &Store{
		uploadDir: uploadDir,
		workDir:   workDir,
		outputDir: outputDir,
	}, nil
}

// AllowedExtension reports whether name carries a supported upload
// extension.
func AllowedExtension(name string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(name))]
}

// SaveUpload stores an uploaded document under the upload directory
// as <jobID><ext> and returns the stored path.
func (s *Store) SaveUpload(jobID, originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExts[ext] {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}

	path := filepath.Join(s.uploadDir, jobID+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return path, nil
}

// WorkDir returns the per-job scratch directory, creating it on first
// use. Page images and rendered canvases live here while a job runs.
func (s *Store) WorkDir(jobID string) (string, error) {
	dir := filepath.Join(s.workDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	return dir, nil
}

// OutputPath returns the final artifact path for a job. The name keeps
// the sanitized original base name with a translated_ prefix; inputs
// we cannot encode are renamed to .png.
func (s *Store) OutputPath(jobID, originalName string) (string, error) {
	dir := filepath.Join(s.outputDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := "translated_" + file.SafeBaseName(originalName)
	if !encodableExts[strings.ToLower(filepath.Ext(name))] {
		name = file.ReplaceExt(name, "png")
	}
	return filepath.Join(dir, name), nil
}

// RemoveWorkDir drops a job's scratch directory. Completed jobs call
// this once the output artifact is written.
func (s *Store) RemoveWorkDir(jobID string) {
	dir := filepath.Join(s.workDir, jobID)
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("Failed to remove work directory %s: %v", dir, err)
	}
}

// CleanupJob removes everything stored for a single job.
func (s *Store) CleanupJob(jobID, inputPath string) {
	if inputPath != "" {
		if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
			log.Warn("Failed to remove upload of job %s: %v", jobID, err)
		}
	}
	for _, dir := range []string{
		filepath.Join(s.workDir, jobID),
		filepath.Join(s.outputDir, jobID),
	} {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("Failed to remove %s: %v", dir, err)
		}
	}
}

// SweepOlderThan removes artifact files whose modification time is
// before cutoff and returns how many were deleted. Jobs evicted from
// the store for capacity can leave files behind with no record
// pointing at them; the sweep is what reclaims those.
func (s *Store) SweepOlderThan(cutoff time.Time) int {
	removed := 0
	for _, dir := range []string{s.uploadDir, s.workDir, s.outputDir} {
		stale, err := file.FindOlderThan(dir, cutoff)
		if err != nil {
			log.Warn("Failed to scan %s for stale files: %v", dir, err)
			continue
		}
		for _, path := range stale {
			if err := os.Remove(path); err != nil {
				log.Warn("Failed to remove stale file %s: %v", path, err)
				continue
			}
			removed++
		}
	}
	s.removeEmptyJobDirs()
	return removed
}

// removeEmptyJobDirs drops per-job directories left empty by a sweep.
// os.Remove only succeeds on empty directories, so occupied ones are
// untouched.
func (s *Store) removeEmptyJobDirs() {
	for _, root := range []string{s.workDir, s.outputDir} {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				_ = os.Remove(filepath.Join(root, entry.Name()))
			}
		}
	}
}

// SaveImage writes img to path, picking the codec from the extension.
// JPEG gets the given quality; everything else is written as PNG.
func SaveImage(path string, img image.Image, jpegQuality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		if jpegQuality <= 0 || jpegQuality > 100 {
			jpegQuality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to encode image %s: %w", path, err)
	}
	return f.Close()
}
