package main

import (
	"net/http"

	"repolens/internal/bookmark"
	"repolens/internal/gitx"
)

type bookmarkRequest struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Branch     string `json:"branch,omitempty"`
	Credential string `json:"credential,omitempty"`
}

func (s *apiServer) handleCreateBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !gitx.ValidRepoURL(req.URL) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed repository url"})
		return
	}
	if req.Branch != "" && !gitx.ValidBranchName(req.Branch) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed branch name"})
		return
	}
	if err := s.bookmarks.Put(bookmark.Bookmark{
		Name:       req.Name,
		URL:        req.URL,
		Branch:     req.Branch,
		Credential: req.Credential,
	}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *apiServer) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	list, err := s.bookmarks.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmarks": list})
}

func (s *apiServer) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.bookmarks.Delete(r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
