package gitx

import (
	"fmt"
	"regexp"
	"strings"
)

// FailureKind identifies one category of git-client failure.
type FailureKind string

const (
	FailureBranchNotFound       FailureKind = "branch_not_found"
	FailureRepositoryNotFound   FailureKind = "repository_not_found"
	FailureAuthenticationFailed FailureKind = "authentication_failed"
	FailureNetworkError         FailureKind = "network_error"
	FailurePermissionDenied     FailureKind = "permission_denied"
	FailureUnknown              FailureKind = "unknown"
)

// Failure is a classified git-client error. It carries a message suitable
// for surfacing to callers; raw git stderr never leaves this package.
type Failure struct {
	Kind    FailureKind
	Message string
	// Branch is set for FailureBranchNotFound only.
	Branch string
}

func (f *Failure) Error() string { return f.Message }

// Ordered branch-not-found patterns, matched case-insensitively against
// the raw output so a captured branch name keeps its case. The first
// capturing group, when present, yields the offending branch name; the
// remote-ref phrase classifies even when git omits the ref.
var branchNotFoundRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)couldn't find remote ref(?:\s+(?:refs/heads/)?(\S+))?`),
	regexp.MustCompile(`(?i)remote branch (\S+) not found`),
	regexp.MustCompile(`(?i)pathspec '([^']+)' did not match any file`),
}

var (
	repoNotFoundRules = []string{
		"repository not found",
		"could not read from remote repository",
	}
	// "permission denied" belongs here, not in the permission-denied
	// category: when git prints it during a remote operation it almost
	// always means bad credentials. See classification order below.
	authFailedRules = []string{
		"authentication failed",
		"permission denied",
		"unauthorized",
		"invalid credentials",
	}
	networkRules = []string{
		"connection refused",
		"network unreachable",
		"timed out",
		"timeout",
		"could not resolve host",
		"failed to connect",
	}
	permissionRules = []string{
		"access denied",
		"forbidden",
	}
)

// Classify maps a failed git invocation onto a Failure. Rules are ordered
// and first-match-wins; the order is a correctness invariant, not a detail:
// authentication is tried before filesystem permission so credential
// problems are never reported as local permission problems, and exit code
// 128 only biases the search toward branch-related patterns (128 is git's
// generic fatal code and is overloaded, so it is never sufficient alone).
//
// branch is the branch the operation targeted, used as a fallback when no
// pattern captures one. Classify never mutates state and never retries.
func Classify(exitCode int, output, branch string) *Failure {
	text := strings.ToLower(output)

	// Branch patterns first; exit 128 narrows here but proves nothing.
	for _, re := range branchNotFoundRules {
		if m := re.FindStringSubmatch(output); m != nil {
			name := branch
			if len(m) > 1 && m[1] != "" {
				name = strings.TrimSuffix(m[1], "'")
			}
			if name == "" {
				name = "unknown"
			}
			return &Failure{
				Kind:    FailureBranchNotFound,
				Branch:  name,
				Message: fmt.Sprintf("branch %q not found on the remote", name),
			}
		}
	}
	if containsAny(text, repoNotFoundRules) {
		return &Failure{
			Kind:    FailureRepositoryNotFound,
			Message: "repository not found or inaccessible; check the URL",
		}
	}
	if containsAny(text, authFailedRules) {
		return &Failure{
			Kind:    FailureAuthenticationFailed,
			Message: "authentication failed; check the supplied credential",
		}
	}
	if containsAny(text, networkRules) {
		return &Failure{
			Kind:    FailureNetworkError,
			Message: "network error while contacting the remote",
		}
	}
	if containsAny(text, permissionRules) {
		return &Failure{
			Kind:    FailurePermissionDenied,
			Message: "permission denied accessing the repository",
		}
	}
	return &Failure{
		Kind:    FailureUnknown,
		Message: fmt.Sprintf("git operation failed: %s", summarize(output, exitCode)),
	}
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// summarize extracts a best-effort human message from raw git output:
// the first "fatal:"/"error:" line wins (prefix stripped), then the first
// non-empty line, then the exit code.
func summarize(output string, exitCode int) string {
	lines := strings.Split(output, "\n")
	for _, l := range lines {
		l = strings.TrimSpace(l)
		for _, prefix := range []string{"fatal:", "error:"} {
			if strings.HasPrefix(strings.ToLower(l), prefix) {
				return strings.TrimSpace(l[len(prefix):])
			}
		}
	}
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return fmt.Sprintf("exit code %d", exitCode)
}
