package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/skypro1111/wordclip-service/internal/audio"
	"github.com/skypro1111/wordclip-service/internal/phrase"
	"github.com/skypro1111/wordclip-service/internal/session"
	"github.com/skypro1111/wordclip-service/internal/store"
	"github.com/skypro1111/wordclip-service/internal/transcript"
)

const defaultRecordingName = "recording.wav"

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, phrase.ErrIndexOutOfRange),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoRecording), errors.Is(err, session.ErrUploadSuperseded):
		return http.StatusConflict
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, audio.ErrEmptySelection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, audio.ErrInvalidWAV), errors.Is(err, audio.ErrInvalidBuffer):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= 500 {
		h.logger.Error("Request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}

func (h *HTTPServer) badRequest(w http.ResponseWriter, format string, args ...interface{}) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": fmt.Sprintf(format, args...)})
}

func (h *HTTPServer) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.sessionMgr.GetSession(r.PathValue("id"))
	if !ok {
		h.writeError(w, r, fmt.Errorf("%w: %s", session.ErrSessionNotFound, r.PathValue("id")))
		return nil, false
	}
	s.Touch()
	return s, true
}

// handleCreateSession implements POST /sessions
func (h *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessionMgr.CreateSession()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/sessions/"+s.ID)
	writeJSON(w, http.StatusCreated, s.Info())
}

// handleListSessions implements GET /sessions
func (h *HTTPServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionMgr.GetAllSessions()

	infos := make([]session.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": infos,
		"count":    len(infos),
	})
}

// handleSessionDetail implements GET /sessions/{id}
func (h *HTTPServer) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Info())
}

// handleDeleteSession implements DELETE /sessions/{id}
func (h *HTTPServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.sessionMgr.RemoveSession(id) {
		h.writeError(w, r, fmt.Errorf("%w: %s", session.ErrSessionNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload implements POST /sessions/{id}/recording. The body is either a
// multipart form with a "file" or "audio" part, or the raw WAV bytes.
func (h *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.HTTP.MaxUploadSize)

	name, data, err := readRecording(r)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.writeError(w, r, err)
			return
		}
		h.badRequest(w, "failed to read recording: %v", err)
		return
	}

	if len(data) == 0 {
		h.badRequest(w, "empty recording")
		return
	}

	if err := audio.ValidateWAV(data); err != nil {
		h.metrics.RecordUploadError()
		h.writeError(w, r, err)
		return
	}

	// Cancelled when the client goes away
	result, err := h.sessionMgr.Upload(r.Context(), r.PathValue("id"), name, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		UploadResult: result,
		AudioURL:     "/sessions/" + result.SessionID + "/recording",
	})
}

// uploadResponse adds the playback location to an upload result
type uploadResponse struct {
	*session.UploadResult
	AudioURL string `json:"audio_url"`
}

// handleRecording implements GET /sessions/{id}/recording
func (h *HTTPServer) handleRecording(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	name, data, err := s.Recording()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", audio.WAVMimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleDeleteTranscript implements DELETE /transcripts/{hash}
func (h *HTTPServer) handleDeleteTranscript(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "transcript cache is disabled"})
		return
	}

	if err := h.cache.DeleteTranscript(r.Context(), r.PathValue("hash")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readRecording(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		name := r.URL.Query().Get("name")
		if name == "" {
			name = defaultRecordingName
		}
		data, err := io.ReadAll(r.Body)
		return name, data, err
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", nil, err
	}

	for _, field := range []string{"file", "audio"} {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}

		name := header.Filename
		if name == "" {
			name = defaultRecordingName
		}
		return name, data, nil
	}

	return "", nil, errors.New(`multipart form has no "file" or "audio" part`)
}

// handleTranscript implements GET /sessions/{id}/transcript
func (h *HTTPServer) handleTranscript(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	res, err := s.Transcript()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":   s.ID,
		"words":        res.Words,
		"faults":       res.Faults,
		"partial":      res.Partial(),
		"chunks_total": res.ChunksTotal,
	})
}

func writePhrase(w http.ResponseWriter, status int, s *session.Session) {
	words := s.Phrase()
	writeJSON(w, status, map[string]interface{}{
		"session_id": s.ID,
		"words":      words,
		"length":     len(words),
	})
}

// handleGetPhrase implements GET /sessions/{id}/phrase
func (h *HTTPServer) handleGetPhrase(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	writePhrase(w, http.StatusOK, s)
}

// appendRequest selects a transcript word by index, or supplies a word
type appendRequest struct {
	Index     *int     `json:"index"`
	Word      *string  `json:"word"`
	StartTime *float64 `json:"startTime"`
	EndTime   *float64 `json:"endTime"`
}

// handleAppendPhrase implements POST /sessions/{id}/phrase
func (h *HTTPServer) handleAppendPhrase(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req appendRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.badRequest(w, "invalid request body: %v", err)
		return
	}

	switch {
	case req.Index != nil:
		if req.Word != nil || req.StartTime != nil || req.EndTime != nil {
			h.badRequest(w, "index cannot be combined with an explicit word")
			return
		}
		if _, err := s.AppendWord(*req.Index); err != nil {
			h.writeError(w, r, err)
			return
		}
	case req.Word != nil && req.StartTime != nil && req.EndTime != nil:
		s.AppendCustomWord(transcript.Word{
			Text:      strings.TrimSpace(*req.Word),
			StartTime: *req.StartTime,
			EndTime:   *req.EndTime,
		})
	default:
		h.badRequest(w, "request needs either index or word, startTime and endTime")
		return
	}

	writePhrase(w, http.StatusOK, s)
}

// handleRemovePhrase implements DELETE /sessions/{id}/phrase/{index}
func (h *HTTPServer) handleRemovePhrase(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.badRequest(w, "invalid phrase index %q", r.PathValue("index"))
		return
	}

	if err := s.RemoveWord(index); err != nil {
		h.writeError(w, r, err)
		return
	}

	writePhrase(w, http.StatusOK, s)
}

// handleClearPhrase implements DELETE /sessions/{id}/phrase
func (h *HTTPServer) handleClearPhrase(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.ClearPhrase()
	writePhrase(w, http.StatusOK, s)
}

// handleClip implements GET and POST /sessions/{id}/clip
func (h *HTTPServer) handleClip(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	clip, err := s.RenderClip()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", audio.WAVMimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clip.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(clip.Data)))
	w.Header().Set("X-Clip-Duration", strconv.FormatFloat(clip.Duration, 'f', 3, 64))
	w.Header().Set("X-Clip-Segments", strconv.Itoa(clip.Segments))
	w.WriteHeader(http.StatusOK)
	w.Write(clip.Data)
}
