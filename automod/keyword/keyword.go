// Literal keyword and link matching over message content.
package keyword

import (
	"regexp"
	"strings"
)

// Tokens which, appearing anywhere in a message, mark it as a likely scam or phishing attempt.
var DefaultSuspectTokens = []string{"nitro", "free", "airdrop", "gift", "steam", "verify"}

var linkRegex = regexp.MustCompile(`https?://`)

// Reports whether text contains a link with an http or https scheme.
func ContainsLink(text string) bool {
	return linkRegex.MatchString(text)
}

// Returns the first token found as a case-insensitive substring of text, or the empty string. Matching is literal: accented or full-width look-alikes don't match.
//
// Tokens are expected to already be lower-case.
func ContainsAnyToken(text string, tokens []string) string {
	text = strings.ToLower(text)
	for _, tok := range tokens {
		if tok != "" && strings.Contains(text, tok) {
			return tok
		}
	}
	return ""
}
