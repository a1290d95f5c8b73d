package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguageByExtension(t *testing.T) {
	cases := map[string]Language{
		"src/a.ts":       LangTypeScript,
		"src/a.tsx":      LangTypeScript,
		"src/a.js":       LangJavaScript,
		"src/a.jsx":      LangJavaScript,
		"src/a.py":       LangPython,
		"src/a.rs":       LangRust,
		"src/a.go":       LangGo,
		"src/a.java":     LangJava,
		"src/a.cs":       LangCSharp,
		"src/a.rb":       LangRuby,
		"src/a.kt":       LangKotlin,
		"src/a.c":        LangC,
		"src/a.h":        LangC,
		"src/a.cpp":      LangCPP,
		"src/a.unknown":  LangUnknown,
		"src/a":          LangUnknown,
	}
	for path, want := range cases {
		assert.Equal(t, want, DetectLanguageByExtension(path), path)
	}
}
