package main

import (
	"net/http"
	"strings"

	"repolens/internal/scan"
)

type cloneRequest struct {
	URL        string `json:"url"`
	Branch     string `json:"branch,omitempty"`
	Credential string `json:"credential,omitempty"`
	// Bookmark, when set, resolves url/branch/credential from the saved
	// bookmark of that name; explicit fields win over bookmarked ones.
	Bookmark string `json:"bookmark,omitempty"`
}

func (s *apiServer) resolveBookmark(req *cloneRequest) error {
	name := strings.TrimSpace(req.Bookmark)
	if name == "" {
		return nil
	}
	b, err := s.bookmarks.Get(name)
	if err != nil {
		return err
	}
	if req.URL == "" {
		req.URL = b.URL
	}
	if req.Branch == "" {
		req.Branch = b.Branch
	}
	if req.Credential == "" {
		req.Credential = b.Credential
	}
	return nil
}

func (s *apiServer) handleClone(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.resolveBookmark(&req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.repos.Clone(r.Context(), req.URL, req.Branch, req.Credential)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type syncRequest struct {
	RepoID     string `json:"repoId"`
	URL        string `json:"url,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Credential string `json:"credential,omitempty"`
}

type syncResponse struct {
	RepoID string      `json:"repoId"`
	Files  []scan.File `json:"files"`
}

func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !decodeBody(w, r, &req) {
		return
	}
	files, err := s.repos.Sync(r.Context(), req.RepoID, req.URL, req.Branch, req.Credential)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{RepoID: req.RepoID, Files: files})
}

func (s *apiServer) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.repos.ListFiles(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *apiServer) handleReadFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if strings.TrimSpace(path) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "path query parameter is required"})
		return
	}
	content, err := s.repos.ReadFile(r.PathValue("id"), path)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(content)
}

func (s *apiServer) handleDeleteRepo(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
