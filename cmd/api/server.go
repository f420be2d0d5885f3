package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"repolens/internal/archive"
	"repolens/internal/bookmark"
	"repolens/internal/gitx"
	"repolens/internal/repo"
	"repolens/internal/review"
	"repolens/internal/safeio"
)

// apiServer wires HTTP handlers to the lifecycle and analysis services.
type apiServer struct {
	repos     *repo.Manager
	orch      *review.Orchestrator
	bookmarks *bookmark.Store
	reports   *archive.Store
}

func newAPIServer(repos *repo.Manager, orch *review.Orchestrator, bookmarks *bookmark.Store, reports *archive.Store) *apiServer {
	return &apiServer{repos: repos, orch: orch, bookmarks: bookmarks, reports: reports}
}

func buildMux(s *apiServer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/repos/clone", s.handleClone)
	mux.HandleFunc("POST /api/repos/sync", s.handleSync)
	mux.HandleFunc("GET /api/repos/{id}/files", s.handleListFiles)
	mux.HandleFunc("GET /api/repos/{id}/file", s.handleReadFile)
	mux.HandleFunc("DELETE /api/repos/{id}", s.handleDeleteRepo)

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/analyze/ws", s.handleAnalyzeWS)
	mux.HandleFunc("GET /api/models", s.handleModels)

	mux.HandleFunc("POST /api/bookmarks", s.handleCreateBookmark)
	mux.HandleFunc("GET /api/bookmarks", s.handleListBookmarks)
	mux.HandleFunc("DELETE /api/bookmarks/{name}", s.handleDeleteBookmark)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeError maps service errors onto status codes. Classified git
// failures surface their single descriptive message; raw git output never
// reaches a client.
func writeError(w http.ResponseWriter, err error) {
	var gf *gitx.Failure
	switch {
	case errors.Is(err, repo.ErrBadInput),
		errors.Is(err, review.ErrMissingInput),
		errors.Is(err, safeio.ErrBadRepoID),
		errors.Is(err, safeio.ErrUnsafePath):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, repo.ErrRepoNotFound),
		errors.Is(err, repo.ErrFileNotFound),
		errors.Is(err, bookmark.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &gf):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: gf.Message, Kind: string(gf.Kind)})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return false
	}
	return true
}
