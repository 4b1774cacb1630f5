package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"contract-assistant/internal/assistant"
	"contract-assistant/internal/models"
	"contract-assistant/internal/session"
)

const maxUploadBytes = 20 << 20

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
}

// Assistant is the slice of the service the handlers need.
type Assistant interface {
	Upload(ctx context.Context, sessionID, path string) (int, error)
	Answer(ctx context.Context, sessionID, question string, history []models.ConversationTurn) (assistant.Reply, error)
}

type Handler struct {
	svc            Assistant
	requestTimeout time.Duration
}

func NewHandler(svc Assistant, requestTimeout time.Duration) *Handler {
	return &Handler{svc: svc, requestTimeout: requestTimeout}
}

func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/upload", h.UploadDocument).Methods("POST")
	r.HandleFunc("/question", h.AskQuestion).Methods("POST")
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	return r
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type questionRequest struct {
	Question string                    `json:"question"`
	History  []models.ConversationTurn `json:"history"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file upload")
		return
	}
	defer file.Close()

	// Reject unsupported extensions before any bytes are processed.
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !supportedExtensions[ext] {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unsupported file type: %s. Please upload PDF or DOCX.", ext))
		return
	}

	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not store upload")
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, http.StatusInternalServerError, "Could not store upload")
		return
	}
	tmp.Close()

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	chunks, err := h.svc.Upload(ctx, sessionID(r), tmpPath)
	if err != nil {
		log.Error().Err(err).Str("file", header.Filename).Msg("Upload failed")
		switch {
		case errors.Is(err, models.ErrEmptyFile):
			writeError(w, http.StatusBadRequest, "The uploaded file is empty.")
		case errors.Is(err, models.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "Unsupported file type. Please upload PDF or DOCX.")
		case errors.Is(err, models.ErrEmbedding):
			writeError(w, http.StatusBadGateway, "The embedding service is unavailable. Please try again.")
		default:
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Processing failed: %v", err))
		}
		return
	}

	log.Info().Str("file", header.Filename).Int("chunks", chunks).Msg("Document processed")
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: fmt.Sprintf("%s processed.", header.Filename),
	})
}

func (h *Handler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question must not be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	reply, err := h.svc.Answer(ctx, sessionID(r), req.Question, req.History)
	if err != nil {
		log.Error().Err(err).Msg("Question failed")
		switch {
		case errors.Is(err, models.ErrNoIndex):
			writeError(w, http.StatusConflict, "Please upload a document first.")
		case errors.Is(err, models.ErrGuardrailParse):
			writeError(w, http.StatusBadGateway, "Could not verify the question. Please try again.")
		case errors.Is(err, models.ErrEmbedding), errors.Is(err, models.ErrModelCall):
			writeError(w, http.StatusBadGateway, "The language model service is unavailable. Please try again.")
		default:
			writeError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	if reply.Rejected {
		writeJSON(w, http.StatusOK, answerResponse{Answer: "Guardrail: " + reply.Answer})
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Answer: reply.Answer})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}
	return session.DefaultID
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("Error writing response")
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, statusResponse{Status: "error", Message: message})
}
