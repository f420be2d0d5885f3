// Package vulnscan applies a fixed list of vulnerability patterns
// line-by-line to file content. Findings feed per-file review results and
// the degraded fallback when the external reviewer is unavailable.
package vulnscan

import (
	"regexp"
	"strings"
)

// Finding is one pattern hit, located by 1-based line number.
type Finding struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Line        int    `json:"line"`
	Description string `json:"description"`
}

type rule struct {
	name        string
	severity    string
	description string
	re          *regexp.Regexp
}

var rules = []rule{
	{
		name:        "hardcoded_secret",
		severity:    "high",
		description: "possible hardcoded secret or API key",
		re:          regexp.MustCompile(`(?i)(password|passwd|secret|api[_-]?key|token)\s*[:=]\s*["'][^"']{4,}["']`),
	},
	{
		name:        "sql_injection",
		severity:    "high",
		description: "SQL statement built by string concatenation",
		re:          regexp.MustCompile(`(?i)(SELECT|INSERT|UPDATE|DELETE)\b[^;]*["']\s*\+|\+\s*["'][^"']*(FROM|WHERE)\b`),
	},
	{
		name:        "command_injection",
		severity:    "high",
		description: "shell command assembled from dynamic input",
		re:          regexp.MustCompile(`(?i)(exec|system|popen|eval)\s*\([^)]*(\+|%s|\$\{)`),
	},
	{
		name:        "eval_usage",
		severity:    "medium",
		description: "use of eval on dynamic data",
		re:          regexp.MustCompile(`(?i)\beval\s*\(`),
	},
	{
		name:        "weak_hash",
		severity:    "medium",
		description: "weak hash algorithm (MD5/SHA-1)",
		re:          regexp.MustCompile(`(?i)\b(md5|sha1)\s*\(|crypto/(md5|sha1)`),
	},
	{
		name:        "insecure_transport",
		severity:    "low",
		description: "plain http URL",
		re:          regexp.MustCompile(`http://[^\s"']+`),
	},
	{
		name:        "insecure_tls",
		severity:    "high",
		description: "TLS certificate verification disabled",
		re:          regexp.MustCompile(`(?i)InsecureSkipVerify\s*:\s*true|verify\s*=\s*False|rejectUnauthorized\s*:\s*false`),
	},
}

// Scan runs every rule over content, one line at a time.
func Scan(content []byte) []Finding {
	var findings []Finding
	for i, line := range strings.Split(string(content), "\n") {
		for _, r := range rules {
			if r.re.MatchString(line) {
				findings = append(findings, Finding{
					Type:        r.name,
					Severity:    r.severity,
					Line:        i + 1,
					Description: r.description,
				})
			}
		}
	}
	return findings
}
