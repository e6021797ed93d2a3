package walker

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTree creates files (relative path -> content) under a temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWalk_SupportedFilesOnly(t *testing.T) {
	root := writeTree(t, map[string]string{
		"act1.txt":          "When shall we three meet again",
		"notes/themes.md":   "# Ambition",
		"essays/essay.pdf":  "%PDF-1.4",
		"essays/draft.docx": "PK",
		"cover.png":         "\x89PNG",
		"script.py":         "print()",
	})

	files, err := Walk(WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	want := []string{"act1.txt", "essays/draft.docx", "essays/essay.pdf", "notes/themes.md"}
	if got := relPaths(files); !equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

func TestWalk_FileInfoFields(t *testing.T) {
	root := writeTree(t, map[string]string{"Act1.TXT": "Fair is foul"})

	files, err := Walk(WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	f := files[0]
	if !filepath.IsAbs(f.Path) {
		t.Errorf("Path %q is not absolute", f.Path)
	}
	if f.Size != int64(len("Fair is foul")) {
		t.Errorf("Size = %d", f.Size)
	}
	if f.Ext != ".txt" {
		t.Errorf("Ext = %q, want .txt", f.Ext)
	}
	if len(f.ContentHash) != 64 {
		t.Errorf("ContentHash = %q", f.ContentHash)
	}
}

func TestWalk_IncludeExclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"acts/act1.txt":  "a",
		"acts/act2.txt":  "b",
		"acts/draft.md":  "c",
		"notes/todo.txt": "d",
	})

	files, err := Walk(WalkerConfig{RootDir: root, Include: []string{"acts/**"}, Exclude: []string{"*.md"}})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	want := []string{"acts/act1.txt", "acts/act2.txt"}
	if got := relPaths(files); !equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

func TestWalk_SkipsEmptyAndLargeFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"empty.txt": "",
		"big.txt":   "0123456789",
		"ok.txt":    "hi",
	})

	files, err := Walk(WalkerConfig{RootDir: root, MaxFileSize: 5})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if got := relPaths(files); !equal(got, []string{"ok.txt"}) {
		t.Errorf("files = %v", got)
	}
}

func TestWalk_DefaultExcludeDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		".git/notes.txt":        "x",
		".macbot/chromem/a.txt": "x",
		"node_modules/pkg/r.md": "x",
		"__MACOSX/._act1.txt":   "x",
		"act1.txt":              "x",
	})

	files, err := Walk(WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if got := relPaths(files); !equal(got, []string{"act1.txt"}) {
		t.Errorf("files = %v", got)
	}
}

func TestWalk_RootMustBeDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "x"})
	if _, err := Walk(WalkerConfig{RootDir: filepath.Join(root, "a.txt")}); err == nil {
		t.Error("expected error for file root")
	}
	if _, err := Walk(WalkerConfig{RootDir: filepath.Join(root, "missing")}); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestDedupe(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/act1.txt": "same",
		"b/act1.txt": "same",
		"c/act2.txt": "different",
	})

	files, err := Walk(WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	got := relPaths(Dedupe(files))
	if !equal(got, []string{"a/act1.txt", "c/act2.txt"}) {
		t.Errorf("deduped = %v", got)
	}
	if len(files) != 3 {
		t.Error("Dedupe must not modify its input")
	}
}

// --- Pattern matching ---

func TestMatchesInclude_Empty(t *testing.T) {
	if !MatchesInclude("anything.txt", nil) {
		t.Error("empty include patterns should include everything")
	}
}

func TestMatchesInclude_Pattern(t *testing.T) {
	if !MatchesInclude("act1.pdf", []string{"*.pdf"}) {
		t.Error("*.pdf should match act1.pdf")
	}
	if MatchesInclude("act1.txt", []string{"*.pdf"}) {
		t.Error("*.pdf should not match act1.txt")
	}
}

func TestMatchesExclude_Empty(t *testing.T) {
	if MatchesExclude("anything.txt", nil) {
		t.Error("empty exclude patterns should exclude nothing")
	}
}

func TestMatchesExclude_Pattern(t *testing.T) {
	if !MatchesExclude("drafts/old.md", []string{"drafts/**"}) {
		t.Error("drafts/** should match drafts/old.md")
	}
	if MatchesExclude("final.md", []string{"drafts/**"}) {
		t.Error("drafts/** should not match final.md")
	}
}

func TestMatchesInclude_DoubleStarPattern(t *testing.T) {
	if !MatchesInclude("essays/2024/ambition.docx", []string{"**/*.docx"}) {
		t.Error("**/*.docx should match essays/2024/ambition.docx")
	}
}

func TestDescribe(t *testing.T) {
	root := writeTree(t, map[string]string{"notes/Act3.MD": "Banquo's ghost"})

	f, err := Describe(filepath.Join(root, "notes", "Act3.MD"))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if f.RelPath != "Act3.MD" || f.Ext != ".md" || len(f.ContentHash) != 64 {
		t.Errorf("unexpected FileInfo: %+v", f)
	}

	if _, err := Describe(root); err == nil {
		t.Error("expected error for directory")
	}
}
