// Package storage manages the files a render job reads and writes on disk.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrImageNotFound is returned when a requested image does not exist or is not servable
var ErrImageNotFound = errors.New("image not found")

const (
	diagramPrefix = "temp_diagram_"
	configPrefix  = "temp_config_"
	imagePrefix   = "flowchart_"
)

// StagedJob holds the paths for one render job
type StagedJob struct {
	JobID       string
	DiagramPath string
	ConfigPath  string
	ImagePath   string
	ImageName   string
}

// FileStager writes render inputs to a temp directory and owns the static image directory
type FileStager struct {
	tempDir   string
	staticDir string
	logger    *zap.Logger
}

// NewFileStager creates a stager, creating both directories if missing
func NewFileStager(tempDir, staticDir string, logger *zap.Logger) (*FileStager, error) {
	if tempDir == "" {
		tempDir = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, dir := range []string{tempDir, staticDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &FileStager{tempDir: tempDir, staticDir: staticDir, logger: logger}, nil
}

// StaticDir returns the directory images are written to
func (s *FileStager) StaticDir() string {
	return s.staticDir
}

// Stage writes the diagram markup and the render config for jobID.
// On error nothing is left behind.
func (s *FileStager) Stage(jobID, markup string, config []byte) (*StagedJob, error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || strings.Contains(jobID, "..") {
		return nil, fmt.Errorf("invalid job id %q", jobID)
	}

	job := &StagedJob{
		JobID:       jobID,
		DiagramPath: filepath.Join(s.tempDir, diagramPrefix+jobID+".mmd"),
		ConfigPath:  filepath.Join(s.tempDir, configPrefix+jobID+".json"),
		ImageName:   imagePrefix + jobID + ".png",
	}
	job.ImagePath = filepath.Join(s.staticDir, job.ImageName)

	if err := os.WriteFile(job.DiagramPath, []byte(markup), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write diagram file: %w", err)
	}
	if err := os.WriteFile(job.ConfigPath, config, 0o644); err != nil {
		s.Cleanup(job)
		return nil, fmt.Errorf("failed to write render config: %w", err)
	}

	return job, nil
}

// Cleanup removes the staged inputs of a job. The rendered image is kept.
func (s *FileStager) Cleanup(job *StagedJob) {
	if job == nil {
		return
	}
	for _, path := range []string{job.DiagramPath, job.ConfigPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to remove temp file", zap.String("path", path), zap.Error(err))
		}
	}
}

// ImageExists reports whether the job's output is a non-empty regular file
func (s *FileStager) ImageExists(job *StagedJob) bool {
	info, err := os.Stat(job.ImagePath)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// StaticPath resolves a public file name to a path inside the static directory.
// Names containing separators or parent references are rejected.
func (s *FileStager) StaticPath(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") ||
		filepath.Base(name) != name {
		return "", ErrImageNotFound
	}

	path := filepath.Join(s.staticDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrImageNotFound
	}
	return path, nil
}
