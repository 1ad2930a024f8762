package search

import (
	"regexp"
	"strings"

	"github.com/blevesearch/go-porterstemmer"
)

var queryStopWords = map[string]bool{
	"найти": true, "все": true, "для": true,
	"которые": true, "который": true, "которую": true, "которое": true,
	"find": true, "all": true, "the": true, "for": true,
	"which": true, "that": true,
}

// Entity kind words drive filtering, not matching.
var entityKindWords = map[string]bool{
	"методы": true, "метод": true, "классы": true, "класс": true,
	"функции": true, "функция": true,
	"methods": true, "method": true, "classes": true, "class": true,
	"functions": true, "function": true,
}

var queryWordRe = regexp.MustCompile(`\b[а-яё]+|\b[a-z]+`)

// QueryTerms normalizes a free-text query into matchable search terms:
// lowercase words, entity-kind and stop words dropped, Russian endings
// trimmed to root forms, English words stemmed, short words discarded.
func QueryTerms(query string) []string {
	words := queryWordRe.FindAllString(strings.ToLower(query), -1)

	var terms []string
	for _, word := range words {
		if entityKindWords[word] {
			continue
		}
		word = trimRussianEnding(word)
		if queryStopWords[word] || len([]rune(word)) <= 3 {
			continue
		}
		terms = append(terms, stemTerm(word))
	}
	return terms
}

// stemTerm applies the porter stemmer, keeping the stem only when it is
// a prefix of the word: terms are matched by substring, so a rewritten
// suffix (happy -> happi) would never match anything.
func stemTerm(word string) string {
	if !isASCII(word) {
		return word
	}
	stem := string(porterstemmer.StemWithoutLowerCasing([]rune(word)))
	if len(stem) > 3 && strings.HasPrefix(word, stem) {
		return stem
	}
	return word
}

// trimRussianEnding cuts common case and plural endings so that
// "отправки" and "отправка" collapse to the same root.
func trimRussianEnding(word string) string {
	runes := []rune(word)
	if len(runes) <= 4 {
		return word
	}
	suffixes2 := []string{"ии", "ию", "ий", "ие", "ей", "ем", "ия"}
	for _, suf := range suffixes2 {
		if strings.HasSuffix(word, suf) {
			return string(runes[:len(runes)-2])
		}
	}
	if strings.HasSuffix(word, "ами") || strings.HasSuffix(word, "ах") {
		if strings.HasSuffix(word, "ами") {
			return string(runes[:len(runes)-3])
		}
		return string(runes[:len(runes)-2])
	}
	if strings.HasSuffix(word, "и") && len(runes) > 5 {
		return string(runes[:len(runes)-1])
	}
	return word
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
