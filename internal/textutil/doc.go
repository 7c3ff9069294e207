// Package textutil provides small text helpers: filename sanitization for
// uploaded media and rune-safe truncation for transcript previews.
package textutil
