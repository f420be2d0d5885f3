package review

import (
	"time"

	"repolens/internal/vulnscan"
)

// Issue is one non-security code quality finding from the reviewer.
type Issue struct {
	Severity   string `json:"severity"`
	Line       int    `json:"line,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// FileResult is the analysis outcome for one file. A result with Error set
// is degraded: the remaining fields are best-effort or absent, and the
// batch still counts it as one result.
type FileResult struct {
	File            string             `json:"file"`
	Score           *int               `json:"score,omitempty"`
	Issues          []Issue            `json:"issues,omitempty"`
	Vulnerabilities []vulnscan.Finding `json:"vulnerabilities,omitempty"`
	Summary         string             `json:"summary,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// Summary aggregates one batch.
type Summary struct {
	// OverallScore is the rounded mean of every defined per-file score,
	// or 100 when none is defined ("no evidence of problems", not a true
	// perfect rating).
	OverallScore       int       `json:"overallScore"`
	TotalFiles         int       `json:"totalFiles"`
	VulnerabilityCount int       `json:"vulnerabilityCount"`
	ReviewedAt         time.Time `json:"reviewedAt"`
}

// Report is the full outcome of one batch analysis.
type Report struct {
	RepoID  string       `json:"repoId"`
	Model   string       `json:"model"`
	Results []FileResult `json:"results"`
	Summary Summary      `json:"summary"`
}

// Event is one progress notification emitted while a batch runs.
type Event struct {
	Type  string `json:"type"` // file_started | file_done | batch_done
	File  string `json:"file,omitempty"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	Error string `json:"error,omitempty"`
}

func intPtr(v int) *int { return &v }
