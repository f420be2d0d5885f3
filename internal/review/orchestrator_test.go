package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"repolens/internal/repo"
	"repolens/internal/vulnscan"
)

type stubRepo struct {
	files  map[string][]byte
	exists bool
}

func (s *stubRepo) Exists(string) bool { return s.exists }

func (s *stubRepo) ReadFile(_, path string) ([]byte, error) {
	b, ok := s.files[path]
	if !ok {
		return nil, repo.ErrFileNotFound
	}
	return b, nil
}

type stubAnalyzer struct {
	mu       sync.Mutex
	calls    []string
	inFlight int64
	maxSeen  int64
	delay    time.Duration
	failOn   map[string]error
	score    func(path string) *int
}

func (a *stubAnalyzer) AnalyzeFile(ctx context.Context, path string, content []byte, model string) (FileResult, error) {
	cur := atomic.AddInt64(&a.inFlight, 1)
	defer atomic.AddInt64(&a.inFlight, -1)
	for {
		seen := atomic.LoadInt64(&a.maxSeen)
		if cur <= seen || atomic.CompareAndSwapInt64(&a.maxSeen, seen, cur) {
			break
		}
	}
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	a.mu.Lock()
	a.calls = append(a.calls, path)
	a.mu.Unlock()
	if err, ok := a.failOn[path]; ok {
		return FileResult{}, err
	}
	res := FileResult{Summary: "ok: " + path}
	if a.score != nil {
		res.Score = a.score(path)
	}
	return res, nil
}

func repoWith(paths ...string) *stubRepo {
	files := map[string][]byte{}
	for _, p := range paths {
		files[p] = []byte("content of " + p)
	}
	return &stubRepo{files: files, exists: true}
}

func TestAnalyzePreconditions(t *testing.T) {
	o := New(repoWith("a.go"), &stubAnalyzer{})

	_, err := o.Analyze(context.Background(), "", "m", []string{"a.go"}, nil)
	require.ErrorIs(t, err, ErrMissingInput)
	_, err = o.Analyze(context.Background(), "id", "", []string{"a.go"}, nil)
	require.ErrorIs(t, err, ErrMissingInput)
	_, err = o.Analyze(context.Background(), "id", "m", nil, nil)
	require.ErrorIs(t, err, ErrMissingInput)

	missing := repoWith("a.go")
	missing.exists = false
	_, err = New(missing, &stubAnalyzer{}).Analyze(context.Background(), "id", "m", []string{"a.go"}, nil)
	require.ErrorIs(t, err, repo.ErrRepoNotFound)
}

func TestAnalyzeCardinalityAndOrder(t *testing.T) {
	files := make([]string, 10)
	for i := range files {
		files[i] = fmt.Sprintf("f%02d.go", i)
	}
	analyzer := &stubAnalyzer{
		delay:  5 * time.Millisecond,
		failOn: map[string]error{"f03.go": errors.New("model exploded"), "f07.go": errors.New("timeout")},
	}
	o := New(repoWith(files...), analyzer)

	report, err := o.Analyze(context.Background(), "id", "m", files, nil)
	require.NoError(t, err)
	require.Len(t, report.Results, len(files))
	for i, r := range report.Results {
		require.Equal(t, files[i], r.File, "results must follow input order")
	}
	require.Equal(t, "model exploded", report.Results[3].Error)
	require.NotNil(t, report.Results[3].Score, "degraded result carries the fallback score")
	require.Equal(t, degradedScore, *report.Results[3].Score)
	require.Contains(t, report.Results[3].Summary, "unavailable")
	require.Empty(t, report.Results[0].Error)
}

// A reviewer outage must not silence local findings: the degraded result
// still carries whatever the pattern scan saw in the file.
func TestAnalyzeDegradedKeepsLocalFindings(t *testing.T) {
	repos := repoWith("ok.go")
	repos.files["bad.go"] = []byte("package p\nvar password = \"hunter2-prod\"\n")
	analyzer := &stubAnalyzer{failOn: map[string]error{"bad.go": errors.New("model unavailable")}}
	o := New(repos, analyzer)

	report, err := o.Analyze(context.Background(), "id", "m", []string{"ok.go", "bad.go"}, nil)
	require.NoError(t, err)

	degraded := report.Results[1]
	require.Equal(t, "model unavailable", degraded.Error)
	require.NotNil(t, degraded.Score)
	require.Equal(t, degradedScore, *degraded.Score)
	require.NotEmpty(t, degraded.Vulnerabilities, "local findings survive a failed review")
	require.Equal(t, "hardcoded_secret", degraded.Vulnerabilities[0].Type)
	require.Equal(t, 2, degraded.Vulnerabilities[0].Line)
	require.Equal(t, 1, report.Summary.VulnerabilityCount)
}

func TestAnalyzeConcurrencyBound(t *testing.T) {
	files := make([]string, 12)
	for i := range files {
		files[i] = fmt.Sprintf("f%02d.go", i)
	}
	analyzer := &stubAnalyzer{delay: 10 * time.Millisecond}
	o := New(repoWith(files...), analyzer)

	_, err := o.Analyze(context.Background(), "id", "m", files, nil)
	require.NoError(t, err)
	require.LessOrEqual(t, analyzer.maxSeen, int64(defaultWindow),
		"in-flight reviewer calls must stay within the window")
}

func TestAnalyzeMissingFileShortCircuits(t *testing.T) {
	analyzer := &stubAnalyzer{}
	o := New(repoWith("a.go"), analyzer)

	report, err := o.Analyze(context.Background(), "id", "m", []string{"a.go", "gone.go"}, nil)
	require.NoError(t, err)
	require.Equal(t, "File not found", report.Results[1].Error)
	require.Nil(t, report.Results[1].Score)
	for _, call := range analyzer.calls {
		require.NotEqual(t, "gone.go", call, "analyzer must not run for a missing file")
	}
}

func TestAnalyzeEvents(t *testing.T) {
	files := []string{"a.go", "b.go"}
	o := New(repoWith(files...), &stubAnalyzer{})

	var mu sync.Mutex
	counts := map[string]int{}
	_, err := o.Analyze(context.Background(), "id", "m", files, func(ev Event) {
		mu.Lock()
		counts[ev.Type]++
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Equal(t, 2, counts["file_started"])
	require.Equal(t, 2, counts["file_done"])
	require.Equal(t, 1, counts["batch_done"])
}

func TestSummarize(t *testing.T) {
	s := summarize([]FileResult{
		{Score: intPtr(80)},
		{},
		{Score: intPtr(60)},
	})
	require.Equal(t, 70, s.OverallScore)
	require.Equal(t, 3, s.TotalFiles)

	s = summarize([]FileResult{{}, {Error: "x"}})
	require.Equal(t, 100, s.OverallScore, "no scored results defaults to 100")

	s = summarize([]FileResult{
		{Vulnerabilities: []vulnscan.Finding{{Type: "weak_hash"}, {Type: "eval_usage"}}},
		{},
		{Vulnerabilities: []vulnscan.Finding{{Type: "sql_injection"}}},
	})
	require.Equal(t, 3, s.VulnerabilityCount)
}

func TestSummarizeVulnerabilityCount(t *testing.T) {
	report, err := New(repoWith("a.go"), &stubAnalyzer{}).
		Analyze(context.Background(), "id", "m", []string{"a.go"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, report.Summary.TotalFiles)
	require.False(t, report.Summary.ReviewedAt.IsZero())
	require.True(t, strings.HasPrefix(report.Results[0].Summary, "ok:"))
}
