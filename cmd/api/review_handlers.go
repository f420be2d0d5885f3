package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	llmclient "repolens/internal/llmClient"
	"repolens/internal/review"
)

type analyzeRequest struct {
	RepoID string `json:"repoId"`
	Model  string `json:"model"`
	Files  []struct {
		Path string `json:"path"`
		Size int64  `json:"size,omitempty"`
	} `json:"files"`
}

func (req *analyzeRequest) paths() []string {
	out := make([]string, len(req.Files))
	for i, f := range req.Files {
		out[i] = f.Path
	}
	return out
}

func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	report, err := s.orch.Analyze(r.Context(), req.RepoID, req.Model, req.paths(), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	s.archiveReport(report)
	writeJSON(w, http.StatusOK, report)
}

// archiveReport is best-effort; failures are logged, never surfaced.
func (s *apiServer) archiveReport(report *review.Report) {
	if s.reports == nil {
		return
	}
	b, err := json.Marshal(report)
	if err != nil {
		log.Printf("marshal report for archive: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.reports.PutReport(ctx, report.RepoID, report.Summary.ReviewedAt, b); err != nil {
		log.Printf("archive report: %v", err)
	}
}

func (s *apiServer) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": llmclient.Models()})
}
