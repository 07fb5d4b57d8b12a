package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/receipt-splitter/internal/scanning"
)

// maxUploadSize fits high-resolution phone photos
const maxUploadSize = int64(50 << 20)

// corsMiddleware adds CORS headers and answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// errorResponse is the body of every failed API call
type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// writeError maps service errors to status codes
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Session not found"})
	case errors.Is(err, scanning.ErrUnreadableDocument):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "The uploaded file could not be read. Please upload a JPEG, PNG, HEIC or PDF image."})
	case errors.Is(err, ErrExtraction):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Hint: ExtractionHint})
	case errors.Is(err, ErrNoReceipt),
		errors.Is(err, ErrNoPeople),
		errors.Is(err, ErrInvalidStep),
		errors.Is(err, ErrInvalidItem),
		errors.Is(err, ErrUnknownPerson),
		errors.Is(err, ErrInvalidTip),
		errors.Is(err, ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		slog.Error("Internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

// decodeBody reads a JSON request body into v, answering 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// respondSession writes the session or the error that prevented it
func respondSession(w http.ResponseWriter, session *Session, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.CreateSession()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.PathValue("id"))
	respondSession(w, session, err)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSession(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.ResetSession(r.PathValue("id"))
	respondSession(w, session, err)
}

func (s *Server) handleSetStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step Step `json:"step"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	session, unassigned, err := s.service.SetStep(r.PathValue("id"), req.Step)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":          session,
		"unassigned_items": unassigned,
	})
}

// uploadContentType determines the type of an uploaded file
func uploadContentType(header string, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(header))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorMsg})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file was selected. Please choose a file to upload."})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error reading file. Please try again."})
		return
	}

	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)

	session, err := s.service.ScanReceipt(r.Context(), r.PathValue("id"), header.Filename, data, contentType)
	s.metrics.observeScan(err)
	respondSession(w, session, err)
}

func (s *Server) handleLoadSample(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.LoadSampleReceipt(r.PathValue("id"))
	respondSession(w, session, err)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.GetReceiptImage(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}

func (s *Server) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	var details Details
	if !decodeBody(w, r, &details) {
		return
	}
	session, err := s.service.UpdateDetails(r.PathValue("id"), details)
	respondSession(w, session, err)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	session, added, err := s.service.AddItem(r.PathValue("id"), req.Name, req.Price, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"added":   added,
	})
}

func (s *Server) handleAddPeople(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Names string `json:"names"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := s.service.AddPeople(r.PathValue("id"), req.Names)
	respondSession(w, session, err)
}

func (s *Server) handleRemovePerson(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.RemovePerson(r.PathValue("id"), r.PathValue("person"))
	respondSession(w, session, err)
}

func (s *Server) setAssignment(w http.ResponseWriter, r *http.Request, assigned bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Item index must be a number"})
		return
	}
	session, err := s.service.SetItemAssignment(r.PathValue("id"), index, r.PathValue("person"), assigned)
	respondSession(w, session, err)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	s.setAssignment(w, r, true)
}

func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	s.setAssignment(w, r, false)
}

func (s *Server) handleAssignUnassigned(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Person string `json:"person"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := s.service.AssignUnassigned(r.PathValue("id"), req.Person)
	respondSession(w, session, err)
}

func (s *Server) handleSplitEvenly(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.SplitEvenly(r.PathValue("id"))
	respondSession(w, session, err)
}

func (s *Server) handleSetTip(w http.ResponseWriter, r *http.Request) {
	var tip Tip
	if !decodeBody(w, r, &tip) {
		return
	}
	session, err := s.service.SetTip(r.PathValue("id"), tip)
	respondSession(w, session, err)
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	split, err := s.service.Split(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, split)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, summary)
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.CSV(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="receipt_split.csv"`)
	w.Write(data)
}
