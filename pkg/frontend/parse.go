package frontend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

// cppExtensions mirrors internal/scanner's language map; kept local so the
// frontend has no dependency on the scanner package.
var cppExtensions = map[string]bool{
	".cpp": true, ".hpp": true, ".cc": true, ".hh": true,
	".cxx": true, ".hxx": true, ".c++": true, ".h++": true,
}

// languageForPath picks the tree-sitter grammar by file extension.
func languageForPath(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if cppExtensions[ext] {
		return LanguageCPP
	}
	return LanguageC
}

// Parse reads and parses a translation unit, then discovers all user
// functions within it. Functions whose body cannot be located are skipped;
// see §4.1 "Failure" handling (logged by the caller, not here).
func Parse(path string) (*TranslationUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseSource(path, content)
}

// ParseSource parses already-read content, useful for tests that build
// fixtures in memory.
func ParseSource(path string, content []byte) (*TranslationUnit, error) {
	lang := languageForPath(path)

	parser := sitter.NewParser()
	switch lang {
	case LanguageCPP:
		parser.SetLanguage(cpp.GetLanguage())
	default:
		parser.SetLanguage(c.GetLanguage())
	}

	tree := parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parsing %s: tree-sitter returned no tree", path)
	}

	tu := &TranslationUnit{
		Path:     path,
		Content:  content,
		Tree:     tree,
		Language: lang,
	}
	tu.Funcs = findFunctions(tu)
	return tu, nil
}
