package indexer

import (
	"regexp"
	"strings"
)

const (
	maxKeywords     = 30
	maxCommentWords = 10
)

var (
	commentRe     = regexp.MustCompile(`(?sm)/\*\*.*?\*/|//.*?$|#.*?$`)
	commentWordRe = regexp.MustCompile(`\b[a-zа-яё]{3,}\b`)
	fqnSplitRe    = regexp.MustCompile(`[:.\\]+`)
)

// splitNameParts breaks an identifier on camelCase, UPPER_CASE and
// snake_case boundaries. Acronym runs stay together: HTTPServer splits
// into "HTTP", "Server".
func splitNameParts(name string) []string {
	var parts []string
	var current []rune
	runes := []rune(name)
	flush := func() {
		if len(current) > 0 {
			parts = append(parts, string(current))
			current = current[:0]
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			flush()
		case r >= 'A' && r <= 'Z':
			prevLower := i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || (nextLower && len(current) > 0) {
				flush()
			}
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return parts
}

// keywordSynonyms expands common domain terms found in descriptions so
// searches in either English or Russian land on the same entities.
var keywordSynonyms = map[string][]string{
	"timeout":    {"таймаут", "timeout", "time out", "wait time", "waiting time", "время ожидания"},
	"email":      {"email", "письмо", "письма", "почта", "mail", "сообщение"},
	"send":       {"отправка", "отправки", "send", "sending", "отправить"},
	"constant":   {"константа", "constant", "const", "значение", "value"},
	"retry":      {"повтор", "retry", "retries", "повторная попытка"},
	"size":       {"размер", "size", "размер файла"},
	"connection": {"соединение", "connection", "подключение", "connect"},
}

// SynthesizeKeywords builds the comma-joined keyword list persisted with
// an analysis record. Terms come from the entity name (split on case and
// underscore boundaries), synonym expansion of the description, words
// found in code comments, and the qualified-name segments.
func SynthesizeKeywords(name, fqn, description, code string) string {
	var keywords []string

	for _, part := range splitNameParts(name) {
		if len(part) > 2 {
			keywords = append(keywords, strings.ToLower(part))
		}
	}
	if name != "" {
		keywords = append(keywords, strings.ToLower(name))
	}

	descriptionLower := strings.ToLower(description)
	for _, synonyms := range keywordSynonyms {
		for _, syn := range synonyms {
			if strings.Contains(descriptionLower, syn) {
				keywords = append(keywords, synonyms...)
				break
			}
		}
	}

	if code != "" {
		for _, comment := range commentRe.FindAllString(code, -1) {
			words := commentWordRe.FindAllString(strings.ToLower(comment), -1)
			if len(words) > maxCommentWords {
				words = words[:maxCommentWords]
			}
			keywords = append(keywords, words...)
		}
	}

	if fqn != "" {
		for _, part := range fqnSplitRe.Split(fqn, -1) {
			if len(part) > 2 {
				keywords = append(keywords, strings.ToLower(part))
			}
		}
	}

	seen := make(map[string]bool, len(keywords))
	var unique []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		unique = append(unique, kw)
		if len(unique) == maxKeywords {
			break
		}
	}
	return strings.Join(unique, ", ")
}
