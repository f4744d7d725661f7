package transcribe

import (
	"errors"
	"log/slog"
	"net/http"

	"scribe/cmd/internal/auth/guard"
	"scribe/cmd/internal/httpx"
)

// DefaultMaxUploadBytes caps the multipart body of POST /upload.
const DefaultMaxUploadBytes int64 = 25 << 20

// Handler serves POST /upload and GET /transcriptions. Both expect
// guard.RequireSession in front of them.
type Handler struct {
	svc      *Service
	log      *slog.Logger
	maxBytes int64
}

func NewHandler(svc *Service, log *slog.Logger, maxBytes int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Handler{svc: svc, log: log, maxBytes: maxBytes}
}

type uploadResponse struct {
	Message           string `json:"message"`
	Transcription     string `json:"transcription"`
	ID                string `json:"id"`
	DetectedLanguage  string `json:"detectedLanguage"`
	RequestedLanguage string `json:"requestedLanguage"`
}

type listResponse struct {
	Transcriptions []Transcription `json:"transcriptions"`
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := guard.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, h.log, "transcribe.upload", httpx.Unauthorized("Unauthorized"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, h.log, "transcribe.upload", httpx.Validation("File too large"))
			return
		}
		httpx.WriteError(w, h.log, "transcribe.upload", httpx.Validation("No audio file uploaded"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, fh, err := r.FormFile("audio")
	if err != nil {
		httpx.WriteError(w, h.log, "transcribe.upload", httpx.Validation("No audio file uploaded"))
		return
	}
	defer func() { _ = file.Close() }()

	out, err := h.svc.Upload(r.Context(), userID, file, fh.Filename, r.FormValue("language"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info("transcribe.upload.ok",
		"user_id", userID,
		"transcription_id", out.Transcription.ID,
		"requested_language", out.RequestedLanguage,
		"detected_language", out.DetectedLanguage,
	)
	httpx.WriteJSON(w, http.StatusOK, uploadResponse{
		Message:           "File uploaded and transcribed successfully",
		Transcription:     out.Transcription.Text,
		ID:                out.Transcription.ID,
		DetectedLanguage:  out.DetectedLanguage,
		RequestedLanguage: out.RequestedLanguage,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := guard.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, h.log, "transcribe.list", httpx.Unauthorized("Unauthorized"))
		return
	}
	items, err := h.svc.History(r.Context(), userID, DefaultListLimit)
	if err != nil {
		httpx.WriteError(w, h.log, "transcribe.list", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{Transcriptions: items})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidLanguage):
		httpx.WriteError(w, h.log, "transcribe.upload", httpx.Validation("Invalid language"))
	case errors.Is(err, ErrNoAudio):
		httpx.WriteError(w, h.log, "transcribe.upload", httpx.Validation("No audio file uploaded"))
	case errors.Is(err, ErrUpstream):
		httpx.WriteError(w, h.log, "transcribe.upload.upstream", httpx.Upstream("Transcription failed", err))
	default:
		httpx.WriteError(w, h.log, "transcribe.upload", err)
	}
}
