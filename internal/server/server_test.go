package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-assistant/internal/assistant"
	"contract-assistant/internal/models"
	"contract-assistant/internal/session"
)

type fakeAssistant struct {
	uploadErr     error
	uploadCalls   int
	uploadSession string
	reply         assistant.Reply
	answerErr     error
	answerCalls   int
	answerSession string
}

func (f *fakeAssistant) Upload(_ context.Context, sessionID, _ string) (int, error) {
	f.uploadCalls++
	f.uploadSession = sessionID
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	return 3, nil
}

func (f *fakeAssistant) Answer(_ context.Context, sessionID, _ string, _ []models.ConversationTurn) (assistant.Reply, error) {
	f.answerCalls++
	f.answerSession = sessionID
	return f.reply, f.answerErr
}

func newTestRouter(svc Assistant) http.Handler {
	return SetupRoutes(NewHandler(svc, 5*time.Second))
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var resp statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestUploadSuccess(t *testing.T) {
	svc := &fakeAssistant{}
	body, contentType := multipartUpload(t, "contract.pdf", "%PDF-1.4 fake")

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeStatus(t, rec)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "contract.pdf processed.", resp.Message)
	assert.Equal(t, 1, svc.uploadCalls)
	assert.Equal(t, session.DefaultID, svc.uploadSession)
}

func TestUploadRejectsUnsupportedExtensionBeforeProcessing(t *testing.T) {
	svc := &fakeAssistant{}
	body, contentType := multipartUpload(t, "notes.txt", "some text")

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, svc.uploadCalls)
	assert.Contains(t, decodeStatus(t, rec).Message, "Unsupported file type")
}

func TestUploadEmptyFile(t *testing.T) {
	svc := &fakeAssistant{uploadErr: fmt.Errorf("%w: contract.pdf", models.ErrEmptyFile)}
	body, contentType := multipartUpload(t, "contract.pdf", "")

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeStatus(t, rec).Message, "empty")
}

func TestUploadEmbeddingOutage(t *testing.T) {
	svc := &fakeAssistant{uploadErr: fmt.Errorf("%w: chunk 2", models.ErrEmbedding)}
	body, contentType := multipartUpload(t, "contract.docx", "fake docx bytes")

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestUploadMissingFile(t *testing.T) {
	svc := &fakeAssistant{}
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, svc.uploadCalls)
}

func askQuestion(t *testing.T, svc Assistant, payload string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/question", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)
	return rec
}

func TestQuestionSuccess(t *testing.T) {
	svc := &fakeAssistant{reply: assistant.Reply{Answer: "Payment is due within 30 days."}}
	rec := askQuestion(t, svc, `{"question":"What does Clause 2 say?","history":[]}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp answerResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Payment is due within 30 days.", resp.Answer)
}

func TestQuestionGuardrailRejection(t *testing.T) {
	svc := &fakeAssistant{reply: assistant.Reply{Answer: "Out of scope for contract analysis.", Rejected: true}}
	rec := askQuestion(t, svc, `{"question":"What's the weather today?"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp answerResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Guardrail: Out of scope for contract analysis.", resp.Answer)
}

func TestQuestionBeforeUpload(t *testing.T) {
	svc := &fakeAssistant{answerErr: models.ErrNoIndex}
	rec := askQuestion(t, svc, `{"question":"What is this contract about?"}`, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeStatus(t, rec).Message, "upload a document first")
}

func TestQuestionGuardrailParseFailure(t *testing.T) {
	svc := &fakeAssistant{answerErr: fmt.Errorf("%w: not json", models.ErrGuardrailParse)}
	rec := askQuestion(t, svc, `{"question":"What does Clause 2 say?"}`, nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decodeStatus(t, rec).Message, "Could not verify")
}

func TestQuestionModelOutage(t *testing.T) {
	svc := &fakeAssistant{answerErr: fmt.Errorf("%w: timeout", models.ErrModelCall)}
	rec := askQuestion(t, svc, `{"question":"What does Clause 2 say?"}`, nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestQuestionEmptyBody(t *testing.T) {
	svc := &fakeAssistant{}
	rec := askQuestion(t, svc, `{"question":"   "}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, svc.answerCalls)
}

func TestQuestionSessionHeader(t *testing.T) {
	svc := &fakeAssistant{reply: assistant.Reply{Answer: "ok"}}
	rec := askQuestion(t, svc, `{"question":"What does Clause 2 say?"}`, map[string]string{"X-Session-ID": "alice"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", svc.answerSession)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	newTestRouter(&fakeAssistant{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeStatus(t, rec).Status)
}
