package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lamii21/Etl/cleaning"
	"github.com/lamii21/Etl/logging"
	"github.com/lamii21/Etl/lookup"
	"github.com/lamii21/Etl/sheetscan"
	"github.com/lamii21/Etl/table"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1)
	if err := r.ParseMultipartForm(s.cfg.MaxFileSize); err != nil {
		respondBadRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondBadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	info, err := s.store.SaveUpload(content, header.Filename)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	logging.FromContext(r.Context()).Info("file uploaded",
		"file_id", info.ID, "name", info.OriginalName, "size", info.Size)
	respondData(w, map[string]any{"file": info})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.List()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, map[string]any{"files": files, "total": len(files)})
}

// handleCleanupFiles removes uploads older than the configured age.
func (s *Server) handleCleanupFiles(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.CleanupOld(s.cfg.CleanupAge)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("old uploads removed", "count", removed)
	respondData(w, map[string]any{"removed": removed})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if err := s.store.Delete(fileID); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, map[string]any{"file_id": fileID, "deleted": true})
}

func (s *Server) handleAnalyzeSheets(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.FindByID(chi.URLParam(r, "fileID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	analysis, err := sheetscan.Analyze(s.store.Path(info))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, analysis)
}

func (s *Server) handleSelectSheet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SheetName string `json:"sheet_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SheetName == "" {
		respondBadRequest(w, "sheet_name is required")
		return
	}

	fileID := chi.URLParam(r, "fileID")
	info, err := s.store.FindByID(fileID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	stats, err := sheetscan.SelectSheet(s.store.Path(info), req.SheetName)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sel := sheetscan.Selection{
		FileID:        fileID,
		SelectedSheet: req.SheetName,
		SheetStats:    stats,
		Timestamp:     time.Now(),
	}
	if err := s.store.SaveSelection(sel); err != nil {
		respondError(w, r, err)
		return
	}

	respondData(w, map[string]any{
		"sheet_name":  req.SheetName,
		"sheet_stats": stats,
		"message":     fmt.Sprintf("Working sheet set to '%s'", req.SheetName),
	})
}

func (s *Server) handleDefaultOptions(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]any{"options": cleaning.DefaultOptions()})
}

// decodeOptions reads cleaning options from the request body; an empty
// body means all defaults.
func decodeOptions(r *http.Request) (cleaning.Options, error) {
	opts := cleaning.DefaultOptions()
	err := json.NewDecoder(r.Body).Decode(&opts)
	if err != nil && !errors.Is(err, io.EOF) {
		return opts, fmt.Errorf("invalid options: %w", err)
	}
	return opts, nil
}

func (s *Server) loadSheetFromUpload(r *http.Request) (*table.Table, string, error) {
	info, err := s.store.FindByID(chi.URLParam(r, "fileID"))
	if err != nil {
		return nil, "", err
	}
	sheetName := chi.URLParam(r, "sheetName")
	t, err := table.LoadSheet(s.store.Path(info), sheetName)
	if err != nil {
		return nil, "", err
	}
	return t, strings.TrimSuffix(info.OriginalName, filepath.Ext(info.OriginalName)), nil
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	t, base, err := s.loadSheetFromUpload(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sheetName := chi.URLParam(r, "sheetName")
	cleaned, report := cleaning.Clean(t, opts)

	outName := fmt.Sprintf("%s_cleaned_%s.xlsx", base, time.Now().Format("20060102_150405"))
	outPath := filepath.Join(s.cfg.ResultsDir, outName)
	if err := cleaned.WriteFile(outPath, sheetName); err != nil {
		respondError(w, r, err)
		return
	}
	if data, err := json.MarshalIndent(report, "", "  "); err == nil {
		writeSidecar(outPath+".report.json", data)
	}

	logging.FromContext(r.Context()).Info("sheet cleaned",
		"sheet", sheetName,
		"rows_removed", report.Stats.RowsRemoved(),
		"columns_removed", report.Stats.ColumnsRemoved(),
	)
	respondData(w, map[string]any{
		"sheet_name":      sheetName,
		"cleaned_file":    outName,
		"cleaning_report": report,
		"original_stats":  map[string]int{"rows": report.Stats.OriginalRows, "columns": report.Stats.OriginalColumns},
		"cleaned_stats":   map[string]int{"rows": report.Stats.FinalRows, "columns": report.Stats.FinalColumns},
	})
}

func (s *Server) handlePreviewClean(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	t, _, err := s.loadSheetFromUpload(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sheetName := chi.URLParam(r, "sheetName")
	_, report := cleaning.Clean(t, opts)
	respondData(w, map[string]any{
		"sheet_name":      sheetName,
		"cleaning_report": report,
	})
}

// writeSidecar writes report metadata next to an output file. Failures
// are logged, not surfaced: the output itself was already written.
func writeSidecar(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("write report side-car", "path", path, "error", err)
	}
}

type processingRequest struct {
	FileID            string `json:"file_id"`
	SheetName         string `json:"sheet_name"`
	MasterBOMPath     string `json:"master_bom_path"`
	ProjectColumnHint string `json:"project_column_hint"`
}

func (req *processingRequest) masterPath(fallback string) string {
	if req.MasterBOMPath != "" {
		return req.MasterBOMPath
	}
	return fallback
}

func (s *Server) handleStartProcessing(w http.ResponseWriter, r *http.Request) {
	var req processingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.FileID == "" {
		respondBadRequest(w, "file_id is required")
		return
	}

	info, err := s.store.FindByID(req.FileID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// Fall back to the persisted working-sheet selection.
	if req.SheetName == "" {
		sel, err := s.store.Selection(req.FileID)
		if err != nil {
			respondBadRequest(w, "sheet_name is required (no working sheet selected)")
			return
		}
		req.SheetName = sel.SelectedSheet
	}

	processor := lookup.NewProcessor(
		lookup.WithMasterBOM(req.masterPath(s.cfg.MasterBOMPath)),
		lookup.WithProjectHint(req.ProjectColumnHint),
		lookup.WithResultsDir(s.cfg.ResultsDir),
	)
	result, err := processor.Process(s.store.Path(info), req.SheetName)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("processing completed",
		"processing_id", result.ProcessingID,
		"matches", result.Stats.LookupMatches,
		"misses", result.Stats.LookupMisses,
	)
	respondData(w, map[string]any{
		"processing_id": result.ProcessingID,
		"file_id":       req.FileID,
		"sheet_name":    req.SheetName,
		"status":        "completed",
		"result":        result,
	})
}

func (s *Server) handleAnalyzeMasterBOM(w http.ResponseWriter, r *http.Request) {
	var req processingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(w, "invalid request body")
		return
	}
	path := req.masterPath(s.cfg.MasterBOMPath)
	summary, err := lookup.NewProcessor(lookup.WithProjectHint(req.ProjectColumnHint)).AnalyzeMasterBOM(path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, map[string]any{"master_bom_path": path, "analysis": summary})
}

func (s *Server) handleSuggestColumns(w http.ResponseWriter, r *http.Request) {
	var req processingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(w, "invalid request body")
		return
	}
	path := req.masterPath(s.cfg.MasterBOMPath)
	suggestions, err := lookup.NewProcessor().SuggestProjectColumns(path, req.ProjectColumnHint)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, map[string]any{
		"project_hint": req.ProjectColumnHint,
		"suggestions":  suggestions,
	})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.ListResults()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, map[string]any{"results": results, "total": len(results)})
}

func (s *Server) handleDownloadResult(w http.ResponseWriter, r *http.Request) {
	path, err := s.store.ResultPath(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.DeleteResult(name); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, map[string]any{"name": name, "deleted": true})
}
