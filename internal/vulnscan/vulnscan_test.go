package vulnscan

import "testing"

func TestScanFindsPatternsWithLines(t *testing.T) {
	src := []byte("package x\n" +
		`var apiKey = "sk-live-0123456789"` + "\n" +
		"// fine line\n" +
		`q := "SELECT * FROM users WHERE id=" + id` + "\n")

	findings := Scan(src)
	byType := map[string]int{}
	for _, f := range findings {
		byType[f.Type] = f.Line
	}
	if byType["hardcoded_secret"] != 2 {
		t.Fatalf("hardcoded_secret line=%d want 2 (findings=%v)", byType["hardcoded_secret"], findings)
	}
	if byType["sql_injection"] != 4 {
		t.Fatalf("sql_injection line=%d want 4 (findings=%v)", byType["sql_injection"], findings)
	}
}

func TestScanCleanContent(t *testing.T) {
	if got := Scan([]byte("package x\n\nfunc main() {}\n")); len(got) != 0 {
		t.Fatalf("clean content produced findings: %v", got)
	}
}
