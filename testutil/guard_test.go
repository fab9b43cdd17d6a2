package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		pred func(string) bool
		in   string
		want bool
	}{
		{"internal", InternalImportForbidden, "mycelium/internal/engine", true},
		{"internal pkg", InternalImportForbidden, "mycelium/pkg/domain", false},
		{"infra", InfraImportForbidden, "mycelium/internal/infra/wiki", true},
		{"blob factory", InfraImportForbidden, "mycelium/internal/blob", true},
		{"metrics", InfraImportForbidden, "mycelium/internal/metrics", false},
		{"third party", ThirdPartyImportForbidden, "go.uber.org/zap", true},
		{"stdlib", ThirdPartyImportForbidden, "net/http", false},
		{"module", ThirdPartyImportForbidden, "mycelium/pkg/domain", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("%s(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
	both := AnyOf(InternalImportForbidden, ThirdPartyImportForbidden)
	if !both("github.com/google/uuid") || !both("mycelium/internal/config") || both("time") {
		t.Fatalf("AnyOf mismatch")
	}
}

func writePkg(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.go"), []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), []byte("package tmp\nimport _ \"mycelium/internal/engine\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return dir
}

func TestAssertNoDirectImportsPasses(t *testing.T) {
	dir := writePkg(t, "package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	AssertNoDirectImports(t, dir, InternalImportForbidden, "test files are ignored")
}

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectViolationsReported(t *testing.T) {
	dir := writePkg(t, "package tmp\nimport (\n\t\"fmt\"\n\t_ \"mycelium/internal/infra/wiki\"\n)\nfunc X(){fmt.Println(1)}")
	viols, err := directImportViolations(dir, InfraImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var r recorder
	failIfDirectViolations(&r, "layering", viols)
	if !strings.Contains(r.msg, "mycelium/internal/infra/wiki (in x.go)") || !strings.Contains(r.msg, "layering") {
		t.Fatalf("unexpected message %q", r.msg)
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), InfraImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
