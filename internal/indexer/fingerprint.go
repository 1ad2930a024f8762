package indexer

import (
	"regexp"
	"strings"
)

const fingerprintMaxLen = 500

var (
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe  = regexp.MustCompile(`(?m)(//|#).*$`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Fingerprint derives the deterministic code fingerprint used when the
// analysis provider returns none. Comments are stripped, whitespace is
// collapsed and the result is capped so fingerprints stay comparable
// across very large entities.
func Fingerprint(code string) string {
	fp := blockCommentRe.ReplaceAllString(code, " ")
	fp = lineCommentRe.ReplaceAllString(fp, "")
	fp = whitespaceRe.ReplaceAllString(fp, " ")
	fp = strings.TrimSpace(fp)
	if len(fp) > fingerprintMaxLen {
		fp = fp[:fingerprintMaxLen]
	}
	return fp
}
