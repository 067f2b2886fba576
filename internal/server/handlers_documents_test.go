package server_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehq/procure-server/internal/models"
)

func (e *testEnv) uploadDocument(token, collection, entityID, fileName, content string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(e.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/"+collection+"/"+entityID+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestUploadAndDownloadDocument(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.officer)

	rec := env.createEntity(token, "contracts", contractFields("With attachments"))
	id := rec["id"].(string)

	w := env.uploadDocument(token, "contracts", id, "agreement.txt", "signed by both parties")
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var doc models.Document
	dataInto(t, w, &doc)
	assert.Equal(t, "agreement.txt", doc.FileName)
	assert.Equal(t, "contract", doc.EntityType)
	assert.Equal(t, id, doc.EntityID)
	assert.Equal(t, int64(len("signed by both parties")), doc.SizeBytes)
	assert.Equal(t, env.officer.ID, doc.UploadedBy)

	w = env.do(http.MethodGet, "/api/v1/contracts/"+id+"/documents", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []*models.Document
	dataInto(t, w, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)

	// Content round-trips byte for byte
	w = env.do(http.MethodGet, "/api/v1/documents/"+doc.ID+"/download", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "signed by both parties", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="agreement.txt"`)
}

func TestUploadDocumentFailures(t *testing.T) {
	env := newTestEnv(t)
	officer := env.tokenFor(env.officer)

	rec := env.createEntity(officer, "contracts", contractFields("Upload targets"))
	id := rec["id"].(string)

	// Multipart field missing entirely
	w := env.do(http.MethodPost, "/api/v1/contracts/"+id+"/documents", officer, map[string]any{"file": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.uploadDocument(env.tokenFor(env.staff), "contracts", id, "sneaky.txt", "hello")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.uploadDocument(officer, "contracts", "no-such-id", "lost.txt", "hello")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListDocumentsEmpty(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.officer)

	rec := env.createEntity(token, "contracts", contractFields("Bare"))

	w := env.do(http.MethodGet, "/api/v1/contracts/"+rec["id"].(string)+"/documents", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestDownloadUnknownDocument(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/documents/no-such-doc/download", env.tokenFor(env.officer), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClassifyDocument(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.officer)

	rec := env.createEntity(token, "contracts", contractFields("Classified"))
	id := rec["id"].(string)

	w := env.uploadDocument(token, "contracts", id, "terms.txt", "annual supply agreement with net-30 terms")
	require.Equal(t, http.StatusCreated, w.Code)
	var doc models.Document
	dataInto(t, w, &doc)

	w = env.do(http.MethodPost, "/api/v1/documents/"+doc.ID+"/classify", token, nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var result struct {
		Category   string  `json:"category"`
		Summary    string  `json:"summary"`
		Confidence float64 `json:"confidence"`
	}
	dataInto(t, w, &result)
	assert.Equal(t, "contract", result.Category)
	assert.Equal(t, "supply agreement", result.Summary)

	// The analysis is stored on the document row
	w = env.do(http.MethodGet, "/api/v1/contracts/"+id+"/documents", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []*models.Document
	dataInto(t, w, &docs)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Analysis, `"category":"contract"`)
}

func TestClassifyUnsupportedFileType(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.officer)

	rec := env.createEntity(token, "contracts", contractFields("Binary blob"))
	w := env.uploadDocument(token, "contracts", rec["id"].(string), "photo.jpg", "\xff\xd8\xff")
	require.Equal(t, http.StatusCreated, w.Code)
	var doc models.Document
	dataInto(t, w, &doc)

	w = env.do(http.MethodPost, "/api/v1/documents/"+doc.ID+"/classify", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
