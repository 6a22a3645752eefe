package fileserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func uploadRequest(t *testing.T, filename, mimeType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadServeDelete(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	content := append(append([]byte{}, pngHeader...), []byte("fake image payload")...)

	rec := httptest.NewRecorder()
	svc.Upload(rec, uploadRequest(t, "photo.png", "image/png", content))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/files/"+resp.PublicID, resp.URL)
	assert.Equal(t, "image", resp.ResourceType)
	assert.Equal(t, "photo.png", resp.FileName)

	// Serve decompresses back to the original bytes.
	rec = httptest.NewRecorder()
	svc.Serve(rec, httptest.NewRequest(http.MethodGet, "/files/"+resp.PublicID, nil), resp.PublicID)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	// Delete, then a repeat delete answers 404.
	rec = httptest.NewRecorder()
	svc.Delete(rec, httptest.NewRequest(http.MethodDelete, "/files/"+resp.PublicID, nil), resp.PublicID)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	svc.Delete(rec, httptest.NewRequest(http.MethodDelete, "/files/"+resp.PublicID, nil), resp.PublicID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadBlockedExtension(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	rec := httptest.NewRecorder()
	svc.Upload(rec, uploadRequest(t, "evil.exe", "application/octet-stream", []byte("MZ...")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadMagicMismatch(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	rec := httptest.NewRecorder()
	svc.Upload(rec, uploadRequest(t, "notreally.png", "image/png", []byte("plain text, no png magic")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeUnknown(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	rec := httptest.NewRecorder()
	svc.Serve(rec, httptest.NewRequest(http.MethodGet, "/files/nope.png", nil), "nope.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", safeFilename(" report.pdf "))
	assert.Equal(t, "ab.txt", safeFilename(`a"b.txt`))
	assert.Equal(t, "....etcpasswd", safeFilename("../../etc/passwd"))
	assert.Empty(t, safeFilename("\r\n"))
}
