// Package store persists uploaded workbooks and processed outputs as
// flat files, with JSON side-cars for metadata such as the selected
// working sheet.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lamii21/Etl/sheetscan"
	"github.com/lamii21/Etl/table"
)

var allowedExtensions = map[string]bool{".xlsx": true, ".xls": true}

const largeFileWarning = 10 << 20 // files above this get a slow-processing warning

// Store is a flat-file blob store split into an uploads area and a
// results area.
type Store struct {
	UploadsDir  string
	ResultsDir  string
	MaxFileSize int64
}

// New creates a Store, creating both directories if needed.
func New(uploadsDir, resultsDir string, maxFileSize int64) (*Store, error) {
	for _, dir := range []string{uploadsDir, resultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %q: %w", dir, err)
		}
	}
	return &Store{UploadsDir: uploadsDir, ResultsDir: resultsDir, MaxFileSize: maxFileSize}, nil
}

// FileInfo describes one stored upload.
type FileInfo struct {
	ID           string    `json:"file_id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Path returns the absolute path of the stored file.
func (s *Store) Path(info *FileInfo) string {
	return filepath.Join(s.UploadsDir, info.StoredName)
}

// Validation is the outcome of checking an upload before accepting it.
type Validation struct {
	Valid    bool     `json:"valid"`
	FileType string   `json:"file_type"`
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
}

// Validate checks size and extension constraints for an upload.
func (s *Store) Validate(size int64, originalName string) Validation {
	v := Validation{Issues: []string{}, Warnings: []string{}}

	if size == 0 {
		v.Issues = append(v.Issues, "File is empty")
	}
	if s.MaxFileSize > 0 && size > s.MaxFileSize {
		v.Issues = append(v.Issues, fmt.Sprintf("File too large: %.1fMB > %.1fMB",
			float64(size)/(1<<20), float64(s.MaxFileSize)/(1<<20)))
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		v.Issues = append(v.Issues, fmt.Sprintf("Invalid file type: %s. Allowed: .xlsx, .xls", ext))
	} else {
		v.FileType = "excel"
	}
	if v.FileType == "" {
		v.FileType = "unknown"
	}

	if size > largeFileWarning {
		v.Warnings = append(v.Warnings, "Large file may take longer to process")
	}

	v.Valid = len(v.Issues) == 0
	return v
}

// SaveUpload validates and stores raw workbook bytes under a
// timestamped, id-prefixed name.
func (s *Store) SaveUpload(content []byte, originalName string) (*FileInfo, error) {
	originalName = filepath.Base(originalName)
	if v := s.Validate(int64(len(content)), originalName); !v.Valid {
		return nil, fmt.Errorf("invalid file: %s", strings.Join(v.Issues, ", "))
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	now := time.Now()
	storedName := fmt.Sprintf("%s_%s_%s", now.Format("20060102_150405"), id, originalName)
	if err := os.WriteFile(filepath.Join(s.UploadsDir, storedName), content, 0o644); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	return &FileInfo{
		ID:           id,
		OriginalName: originalName,
		StoredName:   storedName,
		Size:         int64(len(content)),
		UploadedAt:   now,
	}, nil
}

// FindByID locates an upload by its id fragment. A missing file yields
// table.ErrFileNotFound.
func (s *Store) FindByID(id string) (*FileInfo, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty file id", table.ErrFileNotFound)
	}
	entries, err := os.ReadDir(s.UploadsDir)
	if err != nil {
		return nil, fmt.Errorf("read uploads dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !allowedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, ok := parseStoredName(entry.Name())
		if !ok || info.ID != id {
			continue
		}
		stat, err := entry.Info()
		if err == nil {
			info.Size = stat.Size()
		}
		return &info, nil
	}
	return nil, fmt.Errorf("%w: %s", table.ErrFileNotFound, id)
}

// parseStoredName decodes "YYYYMMDD_HHMMSS_<id>_<original>".
func parseStoredName(name string) (FileInfo, bool) {
	parts := strings.SplitN(name, "_", 4)
	if len(parts) < 4 {
		return FileInfo{}, false
	}
	uploadedAt, err := time.ParseInLocation("20060102_150405", parts[0]+"_"+parts[1], time.Local)
	if err != nil {
		return FileInfo{}, false
	}
	return FileInfo{
		ID:           parts[2],
		OriginalName: parts[3],
		StoredName:   name,
		UploadedAt:   uploadedAt,
	}, true
}

// List returns all stored uploads, newest first.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.UploadsDir)
	if err != nil {
		return nil, fmt.Errorf("read uploads dir: %w", err)
	}
	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !allowedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, ok := parseStoredName(entry.Name())
		if !ok {
			continue
		}
		if stat, err := entry.Info(); err == nil {
			info.Size = stat.Size()
		}
		files = append(files, info)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].UploadedAt.After(files[j].UploadedAt) })
	return files, nil
}

// Delete removes an upload and its side-cars.
func (s *Store) Delete(id string) error {
	info, err := s.FindByID(id)
	if err != nil {
		return err
	}
	if err := os.Remove(s.Path(info)); err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	// best effort: side-cars may not exist
	os.Remove(s.sidecarPath(id + "_sheet_info.json"))
	return nil
}

// CleanupOld removes uploads older than the given age and returns how
// many were deleted.
func (s *Store) CleanupOld(age time.Duration) (int, error) {
	files, err := s.List()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-age)
	removed := 0
	for _, f := range files {
		if f.UploadedAt.After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.UploadsDir, f.StoredName)); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *Store) sidecarPath(name string) string {
	return filepath.Join(s.UploadsDir, filepath.Base(name))
}

// SaveSelection persists the working-sheet selection side-car for a
// file id.
func (s *Store) SaveSelection(sel sheetscan.Selection) error {
	data, err := json.MarshalIndent(sel, "", "  ")
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	path := s.sidecarPath(sel.FileID + "_sheet_info.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write selection: %w", err)
	}
	return nil
}

// Selection loads the working-sheet selection for a file id, if one
// was saved.
func (s *Store) Selection(fileID string) (*sheetscan.Selection, error) {
	data, err := os.ReadFile(s.sidecarPath(fileID + "_sheet_info.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no sheet selection for %s", table.ErrFileNotFound, fileID)
		}
		return nil, fmt.Errorf("read selection: %w", err)
	}
	var sel sheetscan.Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	return &sel, nil
}

// ResultInfo describes one processed output file.
type ResultInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ListResults returns all processed outputs, newest first.
func (s *Store) ListResults() ([]ResultInfo, error) {
	entries, err := os.ReadDir(s.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("read results dir: %w", err)
	}
	var results []ResultInfo
	for _, entry := range entries {
		if entry.IsDir() || !allowedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			continue
		}
		results = append(results, ResultInfo{
			Name:       entry.Name(),
			Size:       stat.Size(),
			ModifiedAt: stat.ModTime(),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ModifiedAt.After(results[j].ModifiedAt) })
	return results, nil
}

// ResultPath resolves a result file name to its path. The name is
// reduced to its base to block path traversal; a missing file yields
// table.ErrFileNotFound.
func (s *Store) ResultPath(name string) (string, error) {
	path := filepath.Join(s.ResultsDir, filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", table.ErrFileNotFound, name)
	}
	return path, nil
}

// DeleteResult removes a processed output and its report side-car.
func (s *Store) DeleteResult(name string) error {
	path, err := s.ResultPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	os.Remove(path + ".report.json")
	return nil
}
