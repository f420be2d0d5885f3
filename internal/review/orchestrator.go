// Package review fans a batch of files out to an external single-file
// reviewer under a fixed concurrency bound and reassembles per-file
// results, in input order, into an aggregate report. One file's failure
// never aborts its siblings: a batch of N files always yields N results.
package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"repolens/internal/repo"
	"repolens/internal/vulnscan"
)

// ErrMissingInput marks a request without a repository id, model or files.
var ErrMissingInput = errors.New("review: repoId, model and a non-empty file list are required")

// Window size 3: balances the downstream API's rate limits against
// latency. Never more than this many reviewer calls are in flight.
const defaultWindow = 3

// degradedScore is the fixed moderate score a degraded result carries.
const degradedScore = 50

// Repository is the slice of the repository lifecycle the orchestrator
// needs: an existence check up front and validated per-file reads.
type Repository interface {
	Exists(repoID string) bool
	ReadFile(repoID, path string) ([]byte, error)
}

// FileAnalyzer reviews a single file with the named model.
type FileAnalyzer interface {
	AnalyzeFile(ctx context.Context, path string, content []byte, model string) (FileResult, error)
}

// Orchestrator runs batches.
type Orchestrator struct {
	repos    Repository
	analyzer FileAnalyzer
	window   int64
}

func New(repos Repository, analyzer FileAnalyzer) *Orchestrator {
	return &Orchestrator{repos: repos, analyzer: analyzer, window: defaultWindow}
}

// Analyze runs the batch. onEvent, when non-nil, receives progress events;
// it may be called from multiple goroutines.
func (o *Orchestrator) Analyze(ctx context.Context, repoID, model string, files []string, onEvent func(Event)) (*Report, error) {
	if repoID == "" || model == "" || len(files) == 0 {
		return nil, ErrMissingInput
	}
	if !o.repos.Exists(repoID) {
		return nil, repo.ErrRepoNotFound
	}

	emit := func(ev Event) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	results := make([]FileResult, len(files))
	sem := semaphore.NewWeighted(o.window)
	var wg sync.WaitGroup

	total := len(files)
	for i, path := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context gone: the remaining slots become error results so
			// the batch still returns one result per input.
			for j := i; j < total; j++ {
				results[j] = FileResult{File: files[j], Error: fmt.Sprintf("analysis canceled: %v", err)}
			}
			break
		}
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			defer sem.Release(1)
			emit(Event{Type: "file_started", File: path, Index: idx, Total: total})
			res := o.analyzeOne(ctx, repoID, model, path)
			results[idx] = res
			emit(Event{Type: "file_done", File: path, Index: idx, Total: total, Error: res.Error})
		}(i, path)
	}
	wg.Wait()

	report := &Report{
		RepoID:  repoID,
		Model:   model,
		Results: results,
		Summary: summarize(results),
	}
	emit(Event{Type: "batch_done", Total: total})
	return report, nil
}

// analyzeOne never returns an aborting error: every failure mode collapses
// into a per-file result.
func (o *Orchestrator) analyzeOne(ctx context.Context, repoID, model, path string) FileResult {
	content, err := o.repos.ReadFile(repoID, path)
	if err != nil {
		if errors.Is(err, repo.ErrFileNotFound) {
			return FileResult{File: path, Error: "File not found"}
		}
		return FileResult{File: path, Error: err.Error()}
	}

	// Local pattern findings are gathered before the external call so a
	// degraded result still carries them.
	local := vulnscan.Scan(content)

	res, err := o.analyzer.AnalyzeFile(ctx, path, content, model)
	if err != nil {
		log.Printf("review: analyzer failed for %s: %v", path, err)
		return FileResult{
			File:            path,
			Score:           intPtr(degradedScore),
			Issues:          []Issue{},
			Vulnerabilities: local,
			Summary:         fmt.Sprintf("Automated review unavailable for this file (%v); local pattern findings only.", err),
			Error:           err.Error(),
		}
	}
	res.File = path
	if len(res.Vulnerabilities) == 0 {
		res.Vulnerabilities = local
	}
	return res
}

func summarize(results []FileResult) Summary {
	sum := 0
	scored := 0
	vulns := 0
	for _, r := range results {
		if r.Score != nil {
			sum += *r.Score
			scored++
		}
		vulns += len(r.Vulnerabilities)
	}
	overall := 100
	if scored > 0 {
		overall = int(math.Round(float64(sum) / float64(scored)))
	}
	return Summary{
		OverallScore:       overall,
		TotalFiles:         len(results),
		VulnerabilityCount: vulns,
		ReviewedAt:         time.Now().UTC(),
	}
}
