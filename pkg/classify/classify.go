package classify

// Package classify turns raw completion text into a typed payload. Replies
// that carry a fenced code block are classified as code, with the block body
// extracted and the language either taken from the fence tag or inferred from
// the body itself.

import (
	"regexp"
	"strings"
)

type ContentKind string

const (
	ContentKindText ContentKind = "text"
	ContentKindCode ContentKind = "code"
)

// LanguageText is the fallback language when nothing in the body matches a
// known language pattern.
const LanguageText = "text"

// Classification is the result of classifying one raw completion.
type Classification struct {
	Kind     ContentKind `json:"kind"`
	Content  string      `json:"content"`
	Language string      `json:"language,omitempty"`
}

// fencePattern matches the first triple-backtick fenced block, with an
// optional language tag directly after the opening fence.
var fencePattern = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)[ \t]*\r?\n?(.*?)```")

type languageMatcher struct {
	language string
	pattern  *regexp.Regexp
}

// Ordered: the first matching entry wins, so python patterns are tried before
// javascript ones and so on.
var languageMatchers = []languageMatcher{
	{"python", regexp.MustCompile(`(?m)^\s*def \w+\s*\(|^\s*import \w+|^\s*from \w+ import |print\s*\(|:\s*$`)},
	{"javascript", regexp.MustCompile(`(?m)\b(function|const|let|var)\b|=>|console\.log|require\s*\(`)},
	{"html", regexp.MustCompile(`(?i)<!DOCTYPE html>|</?\s*(html|head|body|div|span|p|a)\b`)},
	{"css", regexp.MustCompile(`(?m)[.#]?[\w-]+\s*\{[^}]*:[^}]*\}`)},
	{"sql", regexp.MustCompile(`(?i)\b(SELECT\s+.+\s+FROM|INSERT\s+INTO|UPDATE\s+\w+\s+SET|DELETE\s+FROM|CREATE\s+TABLE)\b`)},
}

// Classify scans raw for the first fenced block. If one is found the reply is
// code: the block interior (trimmed) becomes the content, and anything after
// the closing fence is dropped. Without a fence the reply is plain text,
// returned unchanged.
func Classify(raw string) Classification {
	m := fencePattern.FindStringSubmatch(raw)
	if m == nil {
		return Classification{
			Kind:    ContentKindText,
			Content: raw,
		}
	}

	language := strings.ToLower(m[1])
	content := strings.TrimSpace(m[2])

	if language == "" {
		language = InferLanguage(content)
	}

	return Classification{
		Kind:     ContentKindCode,
		Content:  content,
		Language: language,
	}
}

// InferLanguage guesses the language of a code body by trying each known
// language pattern in priority order.
func InferLanguage(code string) string {
	for _, m := range languageMatchers {
		if m.pattern.MatchString(code) {
			return m.language
		}
	}
	return LanguageText
}
