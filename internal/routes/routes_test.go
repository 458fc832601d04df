package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"daybook-ndjson-backend/internal/config"
	"daybook-ndjson-backend/internal/repository"
	"daybook-ndjson-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const daybookUpload = `{"tallymessage": [
	{"date": "20240101", "vouchernumber": "V1", "vouchertypename": "Sales",
	 "allledgerentries": [{"ledgername": "Cash", "amount": "1,000"}, {"ledgername": "Sales", "amount": "(1,000)"}]}
]}`

func newTestRouter(t *testing.T, maxUploadMB int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "routes.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := repository.NewConversionRepository(db).Migrate(); err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewNDJSONStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.MaxUploadMB = maxUploadMB

	r := gin.New()
	RegisterRoutes(r, db, store, &cfg, zerolog.New(io.Discard))
	return r
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/convert-daybook-ndjson", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestConvertAndDownload(t *testing.T) {
	r := newTestRouter(t, 32)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "april.json", []byte(daybookUpload)))
	if w.Code != http.StatusOK {
		t.Fatalf("convert status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["status"] != "success" || resp["rows_created"] != float64(2) || resp["ndjson_file"] != "april.ndjson" {
		t.Errorf("convert response = %v", resp)
	}
	downloadURL, _ := resp["download_url"].(string)
	if downloadURL != "/download-ndjson?filename=april.ndjson" {
		t.Fatalf("download_url = %q", downloadURL)
	}
	convID, _ := resp["conversion_id"].(string)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, downloadURL, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if _, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition")); err != nil || params["filename"] != "april.ndjson" {
		t.Errorf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
	}
	if got := w.Header().Get("X-Conversion-Id"); got != convID {
		t.Errorf("X-Conversion-Id = %q, want %q", got, convID)
	}
	if lines := strings.Count(w.Body.String(), "\n"); lines != 2 {
		t.Errorf("downloaded %d lines, want 2", lines)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conversions/"+convID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get conversion status = %d", w.Code)
	}
	conv := decodeBody(t, w)
	if conv["status"] != "completed" || conv["output_filename"] != "april.ndjson" {
		t.Errorf("conversion record = %v", conv)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/artifacts", nil))
	if !strings.Contains(w.Body.String(), `"april.ndjson"`) {
		t.Errorf("artifacts = %s", w.Body.String())
	}
}

func TestConvert_Errors(t *testing.T) {
	r := newTestRouter(t, 32)

	tests := []struct {
		name       string
		content    string
		wantStatus int
		wantMsg    string
	}{
		{"invalid json", `{"tallymessage": [}`, http.StatusBadRequest, "invalid JSON document"},
		{"no rows", `{"tallymessage": []}`, http.StatusUnprocessableEntity, "No voucher rows extracted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, uploadRequest(t, "bad.json", []byte(tt.content)))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			resp := decodeBody(t, w)
			msg, _ := resp["message"].(string)
			if resp["status"] != "error" || !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("response = %v, want message containing %q", resp, tt.wantMsg)
			}
		})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/convert-daybook-ndjson", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conversions?status=failed", nil))
	list := decodeBody(t, w)
	if items, _ := list["items"].([]any); len(items) != 2 {
		t.Errorf("failed conversions = %v, want 2 items", list["items"])
	}
}

func TestConvert_TooLarge(t *testing.T) {
	r := newTestRouter(t, 1)

	big := bytes.Repeat([]byte(" "), 2<<20)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "big.json", big))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestDownload_Errors(t *testing.T) {
	r := newTestRouter(t, 32)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download-ndjson?filename=nope.ndjson", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp := decodeBody(t, w); resp["message"] != "File not found" {
		t.Errorf("response = %v", resp)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download-ndjson?filename=..%2Fsecret.ndjson", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("traversal status = %d, want 400", w.Code)
	}
}

func TestConversions_BadInput(t *testing.T) {
	r := newTestRouter(t, 32)

	for path, want := range map[string]int{
		"/api/conversions/not-a-uuid":                           http.StatusBadRequest,
		"/api/conversions/7f9c2a52-59d5-4a0e-9b55-3f0f1f4c6a10": http.StatusNotFound,
		"/api/conversions?limit=0":                              http.StatusBadRequest,
		"/api/conversions?cursor=bogus":                         http.StatusBadRequest,
		"/api/health":                                           http.StatusOK,
		"/metrics":                                              http.StatusOK,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, want)
		}
	}
}

func TestDownload_QuotedFilename(t *testing.T) {
	r := newTestRouter(t, 32)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, `q3 "final".json`, []byte(daybookUpload)))
	if w.Code != http.StatusOK {
		t.Fatalf("convert status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	if resp["ndjson_file"] != `q3 "final".ndjson` {
		t.Fatalf("ndjson_file = %v", resp["ndjson_file"])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, resp["download_url"].(string), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d", w.Code)
	}

	disposition, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("Content-Disposition %q does not parse: %v", w.Header().Get("Content-Disposition"), err)
	}
	if disposition != "attachment" || params["filename"] != `q3 "final".ndjson` {
		t.Errorf("disposition = %q, params = %v", disposition, params)
	}
}
