// Package extract turns source files into function records. One Extractor
// variant exists per supported language, selected by file extension; all
// variants share the same contract: total extraction (malformed input yields
// an empty result and an error for the caller to record, never a panic) with
// byte-accurate line ranges and body slices.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// Extractor extracts function records from a single source file.
type Extractor interface {
	Language() string
	Extract(ctx context.Context, path string, src []byte) ([]*model.FunctionRecord, error)
}

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".py":  "python",
	".js":  "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
	".c":   "c",
	".h":   "c",
	".cpp": "cpp",
	".cc":  "cpp",
	".cxx": "cpp",
	".hpp": "cpp",
	".hxx": "cpp",
	".go":  "go",
}

var extractors = map[string]Extractor{
	"python":     &pythonExtractor{},
	"javascript": &jsExtractor{lang: "javascript"},
	"typescript": &jsExtractor{lang: "typescript"},
	"c":          &cExtractor{lang: "c"},
	"cpp":        &cExtractor{lang: "cpp"},
	"go":         &goExtractor{},
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// ForFile returns the extractor responsible for a file, or (nil, false) when
// the extension is unsupported.
func ForFile(path string) (Extractor, bool) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, false
	}
	e, ok := extractors[lang]
	return e, ok
}

// Languages returns the canonical names of all supported languages.
func Languages() []string {
	return []string{"python", "javascript", "typescript", "c", "cpp", "go"}
}
