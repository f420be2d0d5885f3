package gitx

import (
	"net/url"
	"regexp"
	"strings"
)

// branchAllowed is the set of characters a branch name may contain.
var branchAllowed = regexp.MustCompile(`^[A-Za-z0-9._/\-]+$`)

// branchDenied lists shell metacharacters rejected outright. The allowlist
// above already excludes most of these; branch names end up as arguments to
// a git invocation, so they are checked against both lists.
const branchDenied = ";|&$`(){}[]<>*?~\"'\\"

// ValidBranchName reports whether branch is safe to pass to git.
// It must be called before any clone/sync/diff that accepts a
// caller-supplied branch.
func ValidBranchName(branch string) bool {
	if strings.TrimSpace(branch) == "" {
		return false
	}
	if strings.ContainsAny(branch, branchDenied) {
		return false
	}
	if strings.ContainsAny(branch, " \t\n\r") {
		return false
	}
	if strings.HasPrefix(branch, ".") || strings.HasSuffix(branch, ".") {
		return false
	}
	if strings.Contains(branch, "..") {
		return false
	}
	return branchAllowed.MatchString(branch)
}

// ValidRepoURL reports whether raw looks like a cloneable git URL.
// Accepted forms: http(s)://host/path, git://host/path, git@host:path.
func ValidRepoURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if strings.HasPrefix(raw, "git@") {
		rest := strings.TrimPrefix(raw, "git@")
		host, path, ok := strings.Cut(rest, ":")
		return ok && host != "" && path != ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "git":
	default:
		return false
	}
	return u.Host != "" && strings.Trim(u.Path, "/") != ""
}

// WithCredential injects cred into the authority component of an http(s)
// clone URL. cred is either "token" or "user:token". SSH-style URLs are
// returned unchanged since credentials do not travel in the URL there.
func WithCredential(raw, cred string) string {
	cred = strings.TrimSpace(cred)
	if cred == "" {
		return raw
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return raw
	}
	if user, pass, ok := strings.Cut(cred, ":"); ok {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(cred)
	}
	return u.String()
}
