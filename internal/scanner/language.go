package scanner

import (
	"strings"
)

// languageMap maps the file extensions cpggen's frontend understands to a
// coarse language tag used for translation-unit discovery.
var languageMap = map[string]string{
	".c": "c",
	".h": "c",

	".cpp": "cpp",
	".hpp": "cpp",
	".cc":  "cpp",
	".hh":  "cpp",
	".cxx": "cpp",
	".hxx": "cpp",
	".c++": "cpp",
	".h++": "cpp",
}

// DetectLanguage returns the language tag for a given file extension.
// Returns empty string if the extension is not a recognized translation-unit
// or header extension.
func DetectLanguage(ext string) string {
	ext = strings.ToLower(ext)

	if lang, ok := languageMap[ext]; ok {
		return lang
	}

	return ""
}
