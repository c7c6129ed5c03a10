package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/finchat/finchat/chat"
	"github.com/finchat/finchat/ingestion"
	"github.com/finchat/finchat/tabular"
)

const maxUploadBytes = 32 << 20

type chatRequest struct {
	Query      string      `json:"query"`
	SessionID  string      `json:"session_id"`
	DocumentID string      `json:"document_id"`
	Strategy   string      `json:"strategy"`
	History    []chat.Turn `json:"history"`
}

type uploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Chunks     int    `json:"chunks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	s.logger.Debug("chat request",
		zap.String("session_id", req.SessionID),
		zap.String("strategy", req.Strategy))

	resp := s.router.Route(r.Context(), chat.QueryContext{
		Query:      req.Query,
		SessionID:  req.SessionID,
		DocumentID: req.DocumentID,
		Override:   chat.Strategy(req.Strategy),
		History:    req.History,
	})
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.manager.Stats(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUploadPermanent(w http.ResponseWriter, r *http.Request) {
	base := s.manager.Permanent()
	if base == nil {
		s.respondError(w, http.StatusServiceUnavailable, "permanent knowledge base not configured")
		return
	}
	s.handleUpload(w, r, base)
}

type documentInfo struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	Chunks     int    `json:"chunks"`
}

// handleListPermanentDocuments derives document metadata from the stored
// chunk metadata; documents without chunks are not listed.
func (s *Server) handleListPermanentDocuments(w http.ResponseWriter, r *http.Request) {
	base := s.manager.Permanent()
	if base == nil {
		s.respondError(w, http.StatusServiceUnavailable, "permanent knowledge base not configured")
		return
	}

	chunks, err := base.AllChunks(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byID := make(map[string]*documentInfo)
	order := make([]string, 0)
	for _, chunk := range chunks {
		info, ok := byID[chunk.DocumentID]
		if !ok {
			info = &documentInfo{
				DocumentID: chunk.DocumentID,
				Filename:   chunk.Metadata["filename"],
				FileType:   chunk.Metadata["file_type"],
			}
			byID[chunk.DocumentID] = info
			order = append(order, chunk.DocumentID)
		}
		info.Chunks++
	}

	docs := make([]documentInfo, 0, len(order))
	for _, id := range order {
		docs = append(docs, *byID[id])
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleDeletePermanentDocument(w http.ResponseWriter, r *http.Request) {
	base := s.manager.Permanent()
	if base == nil {
		s.respondError(w, http.StatusServiceUnavailable, "permanent knowledge base not configured")
		return
	}

	documentID := chi.URLParam(r, "documentID")
	removed, err := base.Delete(r.Context(), documentID)
	if err != nil {
		s.logger.Error("delete document failed", zap.String("document_id", documentID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"document_id": documentID, "status": "deleted"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.manager.CreateSession()
	s.logger.Debug("session created", zap.String("session_id", id))
	s.respondJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !s.manager.ClearSession(id) {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "cleared"})
}

func (s *Server) handleListSessionDocuments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, ok := s.manager.Session(id); !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	docs := s.manager.SessionDocuments(id)
	s.respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "documents": docs})
}

func (s *Server) handleUploadSessionDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	store, err := s.manager.SessionStore(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.handleUpload(w, r, store)
}

func (s *Server) handleDeleteSessionDocument(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	documentID := chi.URLParam(r, "documentID")
	removed, err := s.manager.RemoveSessionDocument(r.Context(), sessionID, documentID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if !removed {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"document_id": documentID, "status": "deleted"})
}

// handleUpload ingests one multipart file into the given store. Extraction
// and parse failures are the client's fault; everything else is ours.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, store ingestion.Store) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	coordinator, err := ingestion.NewCoordinator(store, s.cfg.Chunking.ChunkSize, s.cfg.Chunking.Overlap(), s.logger)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	doc, err := coordinator.Ingest(r.Context(), payload, header.Filename)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("filename", header.Filename), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, ingestion.ErrUnsupportedFileType) ||
			errors.Is(err, ingestion.ErrExtraction) ||
			errors.Is(err, tabular.ErrParse) {
			status = http.StatusBadRequest
		}
		s.respondError(w, status, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, uploadResponse{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Status:     string(doc.Status),
		Chunks:     doc.Metadata.TotalChunks,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
