// Package ast defines the language-agnostic entity-extraction contract
// consumed by the encoder and diff parser. The tree-sitter grammar
// bindings themselves stay behind internal/ast/treesitter, the only
// package that imports them, mirroring the teacher's treesitter package
// boundary.
package ast

import (
	"path/filepath"
	"strings"
)

// Language is a detected source language identifier, e.g. "go",
// "python", "javascript", "typescript".
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangRust       Language = "rust"
	LangKotlin     Language = "kotlin"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangUnknown    Language = "unknown"
)

// extensionLanguage is the extension -> language mapping from §4.3,
// covering at minimum the languages the spec names.
var extensionLanguage = map[string]Language{
	".ts":    LangTypeScript,
	".tsx":   LangTypeScript,
	".js":    LangJavaScript,
	".jsx":   LangJavaScript,
	".mjs":   LangJavaScript,
	".cjs":   LangJavaScript,
	".py":    LangPython,
	".pyi":   LangPython,
	".rs":    LangRust,
	".go":    LangGo,
	".java":  LangJava,
	".cs":    LangCSharp,
	".rb":    LangRuby,
	".kt":    LangKotlin,
	".c":     LangC,
	".h":     LangC,
	".cpp":   LangCPP,
	".cc":    LangCPP,
	".cxx":   LangCPP,
	".hpp":   LangCPP,
}

// EntityType is the coarse classification an AST node kind maps to.
type EntityType string

const (
	EntFunction EntityType = "function"
	EntMethod   EntityType = "method"
	EntClass    EntityType = "class"
	EntVariable EntityType = "variable"
	EntModule   EntityType = "module"
)

// CodeEntity is one extracted entity.
type CodeEntity struct {
	Type        EntityType
	Name        string
	StartLine   int
	EndLine     int
	StartColumn int
	EndColumn   int
	Parent      string // qualified name of the enclosing entity, if any
	Parameters  []string
}

// ImportSpec is one extracted import statement.
type ImportSpec struct {
	Module string
	Names  []string // imported symbol names; empty means "whole module"
}

// ParseResult is the outcome of parsing one file. Parsing never
// returns a hard error for syntactic problems; those become entries in
// Errors instead, per the "parsing never throws" contract in §4.3.
type ParseResult struct {
	Entities []CodeEntity
	Imports  []ImportSpec
	Errors   []string
}

// Provider is the collaborator interface the core depends on for
// language detection and entity extraction. The default production
// implementation is ast/treesitter.Backend.
type Provider interface {
	DetectLanguage(path string) Language
	IsSupported(lang Language) bool
	Parse(source []byte, lang Language) (*ParseResult, error)
}

// DetectLanguageByExtension implements the extension-based detection
// rule from §4.3; it is exposed standalone so callers that only need
// language detection (the diff parser's file filter, for instance)
// don't need a Provider instance.
func DetectLanguageByExtension(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionLanguage[ext]; ok {
		return lang
	}
	return LangUnknown
}
