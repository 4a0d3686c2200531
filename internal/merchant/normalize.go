// Package merchant reduces merchant display names to comparison keys and
// decides whether two keys denote the same merchant.
package merchant

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// marketingTokens are removed as substrings, not words, so that
// concatenations like "NetflixPremium" reduce to the bare merchant.
var marketingTokens = []string{
	"premium",
	"plus",
	"pro",
	"subscription",
}

// Normalize reduces a display name to a canonical comparison key:
//  1. Lowercase
//  2. Remove marketing tokens (premium, plus, pro, subscription)
//  3. Remove all spaces
//  4. Trim residual whitespace
//
// The key is for equality and similarity checks only, never for display.
func Normalize(name string) string {
	key := cases.Lower(language.Und).String(name)
	for _, tok := range marketingTokens {
		key = strings.ReplaceAll(key, tok, "")
	}
	key = strings.ReplaceAll(key, " ", "")
	return strings.TrimSpace(key)
}
