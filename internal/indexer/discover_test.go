package indexer

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverFilesSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/zeta.py", "pass")
	writeSource(t, root, "src/alpha.py", "pass")
	writeSource(t, root, "web/index.php", "<?php")
	writeSource(t, root, "README.md", "docs")
	writeSource(t, root, "src/__init__.py", "")
	writeSource(t, root, "__pycache__/alpha.cpython-312.pyc", "")
	writeSource(t, root, "tests/test_alpha.py", "pass")
	writeSource(t, root, "node_modules/pkg/index.py", "pass")
	writeSource(t, root, ".venv/lib/site.py", "pass")

	files, err := DiscoverFiles(root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	want := []string{"src/alpha.py", "src/zeta.py", "web/index.php"}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, files)
		}
	}
}

func TestDiscoverFilesSkipsDetectedDependencyDirs(t *testing.T) {
	root := t.TempDir()
	// composer.json next to vendor/ marks it as a dependency directory.
	writeSource(t, root, "composer.json", "{}")
	writeSource(t, root, "vendor/lib/code.php", "<?php")
	writeSource(t, root, "app/main.php", "<?php")

	files, err := DiscoverFiles(root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(files) != 1 || files[0] != "app/main.php" {
		t.Errorf("expected vendor/ skipped, got %v", files)
	}
}

func TestDiscoverFilesExtraExcludes(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "app/main.py", "pass")
	writeSource(t, root, "generated/stubs.py", "pass")

	files, err := DiscoverFiles(root, "generated")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(files) != 1 || files[0] != "app/main.py" {
		t.Errorf("expected generated/ skipped, got %v", files)
	}
}

func TestHashContentStable(t *testing.T) {
	a := HashContent([]byte("hello"))
	b := HashContent([]byte("hello"))
	c := HashContent([]byte("hello!"))
	if a != b {
		t.Error("expected identical hashes for identical content")
	}
	if a == c {
		t.Error("expected different hashes for different content")
	}
	if len(a) != 64 {
		t.Errorf("expected 64-char sha256 hex digest, got %d chars", len(a))
	}
}
