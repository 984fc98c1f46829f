package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lamii21/Etl/config"
	"github.com/lamii21/Etl/store"
	"github.com/lamii21/Etl/table"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		UploadsDir:  filepath.Join(t.TempDir(), "uploads"),
		ResultsDir:  filepath.Join(t.TempDir(), "results"),
		MaxFileSize: 10 << 20,
	}
	st, err := store.New(cfg.UploadsDir, cfg.ResultsDir, cfg.MaxFileSize)
	require.NoError(t, err)
	return New(cfg, st)
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Main_Data"))
	rows := [][]any{
		{" PN ", "Description", "Quantity"},
		{"a100 ", "bolt", 4},
		{"a100 ", "bolt", 4},
		{"a200", "nut", 8},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Main_Data", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func do(t *testing.T, srv *Server, method, path string, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func uploadWorkbook(t *testing.T, srv *Server) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "bom.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbookBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec, env := do(t, srv, http.MethodPost, "/api/upload", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, env.Success)

	var data struct {
		File store.FileInfo `json:"file"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.File.ID)
	return data.File.ID
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec, env := do(t, srv, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}

func TestUploadAndListFiles(t *testing.T) {
	srv := newTestServer(t)
	fileID := uploadWorkbook(t, srv)

	rec, env := do(t, srv, http.MethodGet, "/api/files", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Files []store.FileInfo `json:"files"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1, data.Total)
	require.Len(t, data.Files, 1)
	assert.Equal(t, fileID, data.Files[0].ID)
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec, env := do(t, srv, http.MethodPost, "/api/upload", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "Invalid file type")
}

func TestAnalyzeSheets(t *testing.T) {
	srv := newTestServer(t)
	fileID := uploadWorkbook(t, srv)

	rec, env := do(t, srv, http.MethodGet, "/api/sheets/"+fileID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var data struct {
		TotalSheets      int    `json:"total_sheets"`
		RecommendedSheet string `json:"recommended_sheet"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1, data.TotalSheets)
	assert.Equal(t, "Main_Data", data.RecommendedSheet)
}

func TestAnalyzeSheetsUnknownFile(t *testing.T) {
	srv := newTestServer(t)
	rec, env := do(t, srv, http.MethodGet, "/api/sheets/deadbeef", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestSelectSheet(t *testing.T) {
	srv := newTestServer(t)
	fileID := uploadWorkbook(t, srv)

	body := bytes.NewBufferString(`{"sheet_name":"Main_Data"}`)
	rec, env := do(t, srv, http.MethodPost, "/api/sheets/"+fileID+"/select", body, "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	assert.Contains(t, string(env.Data), "Working sheet set to 'Main_Data'")

	body = bytes.NewBufferString(`{"sheet_name":"Nope"}`)
	rec, env = do(t, srv, http.MethodPost, "/api/sheets/"+fileID+"/select", body, "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestSelectSheetRequiresName(t *testing.T) {
	srv := newTestServer(t)
	fileID := uploadWorkbook(t, srv)

	rec, env := do(t, srv, http.MethodPost, "/api/sheets/"+fileID+"/select",
		bytes.NewBufferString(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "sheet_name is required")
}

func TestDefaultCleaningOptions(t *testing.T) {
	srv := newTestServer(t)
	_, env := do(t, srv, http.MethodGet, "/api/cleaning/options/default", nil, "")
	assert.Contains(t, string(env.Data), `"remove_duplicates":true`)
}

func TestCleanEndpoint(t *testing.T) {
	srv := newTestServer(t)
	fileID := uploadWorkbook(t, srv)

	rec, env := do(t, srv, http.MethodPost,
		"/api/cleaning/clean/"+fileID+"/Main_Data", nil, "application/json")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, env.Success)

	var data struct {
		CleanedFile   string `json:"cleaned_file"`
		OriginalStats struct {
			Rows int `json:"rows"`
		} `json:"original_stats"`
		CleanedStats struct {
			Rows int `json:"rows"`
		} `json:"cleaned_stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 3, data.OriginalStats.Rows)
	assert.Equal(t, 2, data.CleanedStats.Rows, "duplicate row removed")

	// The cleaned workbook and its report land in the results dir.
	outPath := filepath.Join(srv.cfg.ResultsDir, data.CleanedFile)
	cleaned, err := table.LoadSheet(outPath, "Main_Data")
	require.NoError(t, err)
	assert.Equal(t, "A100", cleaned.Cell(0, 0).String())
	assert.FileExists(t, outPath+".report.json")
}

func TestPreviewCleanDoesNotWrite(t *testing.T) {
	srv := newTestServer(t)
	fileID := uploadWorkbook(t, srv)

	body := bytes.NewBufferString(`{"remove_duplicates":false}`)
	rec, env := do(t, srv, http.MethodPost,
		"/api/cleaning/preview/"+fileID+"/Main_Data", body, "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"cleaning_report"`)

	results, err := srv.store.ListResults()
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStartProcessing(t *testing.T) {
	srv := newTestServer(t)
	fileID := uploadWorkbook(t, srv)

	// The master BOM is just another workbook with PN and project columns.
	master := table.New("PN", "Project")
	master.AppendRow(table.NewText("A100"), table.NewText("Alpha"))
	master.AppendRow(table.NewText("A200"), table.NewText("Beta"))
	masterPath := filepath.Join(t.TempDir(), "master.xlsx")
	require.NoError(t, master.WriteFile(masterPath, "Master"))

	body := bytes.NewBufferString(`{"file_id":"` + fileID + `","sheet_name":"Main_Data","master_bom_path":"` +
		strings.ReplaceAll(masterPath, `\`, `\\`) + `"}`)
	rec, env := do(t, srv, http.MethodPost, "/api/processing/start", body, "application/json")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, env.Success)

	var data struct {
		ProcessingID string `json:"processing_id"`
		Status       string `json:"status"`
		Result       struct {
			OutputFile string `json:"output_file"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.ProcessingID)
	assert.Equal(t, "completed", data.Status)
	assert.FileExists(t, filepath.Join(srv.cfg.ResultsDir, data.Result.OutputFile))
}

func TestStartProcessingRequiresFileID(t *testing.T) {
	srv := newTestServer(t)
	rec, env := do(t, srv, http.MethodPost, "/api/processing/start",
		bytes.NewBufferString(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "file_id is required")
}

func TestDeleteFile(t *testing.T) {
	srv := newTestServer(t)
	fileID := uploadWorkbook(t, srv)

	rec, env := do(t, srv, http.MethodDelete, "/api/files/"+fileID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, _ = do(t, srv, http.MethodDelete, "/api/files/"+fileID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCleanupFiles(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.CleanupAge = 24 * time.Hour
	uploadWorkbook(t, srv)

	stale := filepath.Join(srv.cfg.UploadsDir, "20200101_120000_old00000_stale.xlsx")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	rec, env := do(t, srv, http.MethodPost, "/api/files/cleanup", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"removed":1`)
	assert.NoFileExists(t, stale)
}

func TestResultsLifecycle(t *testing.T) {
	srv := newTestServer(t)

	name := "bom_processed_20250101_120000.xlsx"
	path := filepath.Join(srv.cfg.ResultsDir, name)
	require.NoError(t, writeWorkbookFile(t, path))

	rec, env := do(t, srv, http.MethodGet, "/api/results", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), name)

	req := httptest.NewRequest(http.MethodGet, "/api/results/"+name+"/download", nil)
	dl := httptest.NewRecorder()
	srv.Router().ServeHTTP(dl, req)
	assert.Equal(t, http.StatusOK, dl.Code)
	assert.Contains(t, dl.Header().Get("Content-Disposition"), name)

	rec, _ = do(t, srv, http.MethodDelete, "/api/results/"+name, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoFileExists(t, path)
}

func writeWorkbookFile(t *testing.T, path string) error {
	t.Helper()
	tbl := table.New("PN")
	tbl.AppendRow(table.NewText("A100"))
	return tbl.WriteFile(path, "Data")
}
