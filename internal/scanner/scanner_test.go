package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScannerScan(t *testing.T) {
	tmpDir := t.TempDir()

	files := map[string]string{
		"main.c":                   "int main(void) { return 0; }",
		"utils/helper.c":           "void helper(void) {}",
		"include/helper.h":         "void helper(void);",
		"README.md":                "# Test",
		".hidden/file.txt":         "hidden content",
		"node_modules/pkg/main.js": "module.exports = {}",
		".git/config":              "[core]",
	}

	for path, content := range files {
		fullPath := filepath.Join(tmpDir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}

	scanner := New(DefaultOptions())
	results, err := scanner.Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	expectedFiles := map[string]string{
		"main.c":           "c",
		"utils/helper.c":   "c",
		"include/helper.h": "c",
		"README.md":        "",
	}

	foundFiles := make(map[string]bool)
	for _, f := range results {
		foundFiles[f.Path] = true
		if expectedLang, ok := expectedFiles[f.Path]; ok {
			if f.Language != expectedLang {
				t.Errorf("Expected %s to have language %q, got %q", f.Path, expectedLang, f.Language)
			}
		}
	}

	for expected := range expectedFiles {
		if !foundFiles[expected] {
			t.Errorf("Expected to find %s, but it wasn't found", expected)
		}
	}

	excludedFiles := []string{".hidden/file.txt", "node_modules/pkg/main.js", ".git/config"}
	for _, excluded := range excludedFiles {
		if foundFiles[excluded] {
			t.Errorf("Expected %s to be excluded, but it was found", excluded)
		}
	}
}

func TestScannerWithCpggenignore(t *testing.T) {
	tmpDir := t.TempDir()

	ignoreContent := `# Ignore generated test fixtures
*.generated.c
# Ignore build directory
build/
# Ignore specific file
secret.h
`
	err := os.WriteFile(filepath.Join(tmpDir, DefaultOptions().IgnoreFileName), []byte(ignoreContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create ignore file: %v", err)
	}

	files := []string{
		"app.c",
		"app.generated.c",
		"main.cpp",
		"build/output.c",
		"secret.h",
		"public/header.hpp",
	}

	for _, path := range files {
		fullPath := filepath.Join(tmpDir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte("content"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}

	scanner := New(DefaultOptions())
	results, err := scanner.Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	foundFiles := make(map[string]bool)
	for _, f := range results {
		foundFiles[f.Path] = true
	}

	expectedFiles := []string{"app.c", "main.cpp", "public/header.hpp"}
	for _, expected := range expectedFiles {
		if !foundFiles[expected] {
			t.Errorf("Expected to find %s", expected)
		}
	}

	ignoredFiles := []string{"app.generated.c", "build/output.c", "secret.h"}
	for _, ignored := range ignoredFiles {
		if foundFiles[ignored] {
			t.Errorf("Expected %s to be ignored", ignored)
		}
	}
}

func TestScannerSkipHidden(t *testing.T) {
	tmpDir := t.TempDir()

	os.WriteFile(filepath.Join(tmpDir, "visible.c"), []byte("visible"), 0644)
	os.MkdirAll(filepath.Join(tmpDir, ".hidden"), 0755)
	os.WriteFile(filepath.Join(tmpDir, ".hidden/file.txt"), []byte("hidden"), 0644)
	os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("node_modules"), 0644)

	opts := DefaultOptions()
	scanner := New(opts)
	results, _ := scanner.Scan(tmpDir)

	foundHidden := false
	for _, f := range results {
		if f.Path == ".hidden/file.txt" || f.Path == ".gitignore" {
			foundHidden = true
		}
	}
	if foundHidden {
		t.Error("Should skip hidden files when SkipHidden=true")
	}

	opts.SkipHidden = false
	scanner = New(opts)
	results, _ = scanner.Scan(tmpDir)

	foundGitignore := false
	for _, f := range results {
		if f.Path == ".gitignore" {
			foundGitignore = true
		}
	}
	if !foundGitignore {
		t.Error("Should find .gitignore when SkipHidden=false")
	}
}

func TestLanguageDetection(t *testing.T) {
	tests := []struct {
		ext      string
		expected string
	}{
		{".c", "c"},
		{".h", "c"},
		{".cpp", "cpp"},
		{".cc", "cpp"},
		{".hpp", "cpp"},
		{".hxx", "cpp"},
		{".py", ""},
		{".go", ""},
		{".unknown", ""},
		{"", ""},
	}

	for _, tt := range tests {
		result := DetectLanguage(tt.ext)
		if result != tt.expected {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.ext, result, tt.expected)
		}
	}
}

func TestIgnorePattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		match   bool
	}{
		// Simple patterns
		{"*.c", "file.c", true},
		{"*.c", "dir/file.c", true},
		{"*.c", "file.txt", false},
		{"build/", "build/file.c", true},
		{"build/", "other/build/file.c", true},
		{"build/", "builder.c", false},

		// Absolute patterns
		{"/build/", "build/file.c", true},
		{"/build/", "src/build/file.c", false},

		// Directory patterns
		{"vendor/", "vendor/pkg/file.c", true},
		{"vendor/", "src/vendor/pkg/file.c", true},

		// Glob patterns
		{"*.generated.c", "app.generated.c", true},
		{"*.generated.c", "deep/app.generated.c", true},
		{"src/*.c", "src/app.c", true},
		{"src/*.c", "src/deep/app.c", false},

		// Double asterisk
		{"**/test/**", "test/file.c", true},
		{"**/test/**", "src/test/file.c", true},
		{"**/test/**", "src/deep/test/file.c", true},
		{"**/test/**", "testing/file.c", false},

		// Question mark
		{"file?.c", "file1.c", true},
		{"file?.c", "file12.c", false},

		// Negation - pattern matches but is negation
		{"!*.c", "file.c", true}, // Negation pattern still matches the file
	}

	for _, tt := range tests {
		pattern := ParseIgnorePattern(tt.pattern)
		result := pattern.Match(tt.path)
		if result != tt.match {
			t.Errorf("Pattern %q matching %q: got %v, want %v", tt.pattern, tt.path, result, tt.match)
		}
	}
}
