package model

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

var slugWhitespaceExpression = regexp.MustCompile(`\s+`)

// Slugify derives the URL key of a space from its display name: lowercase,
// whitespace runs collapsed to a single hyphen, punctuation dropped.
func Slugify(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	hyphenated := slugWhitespaceExpression.ReplaceAllString(lowered, "-")

	var builder strings.Builder
	builder.Grow(len(hyphenated))
	previousHyphen := false
	for _, character := range hyphenated {
		switch {
		case unicode.IsLetter(character) || unicode.IsDigit(character) || character == '_':
			builder.WriteRune(character)
			previousHyphen = false
		case character == '-':
			if !previousHyphen {
				builder.WriteRune(character)
			}
			previousHyphen = true
		}
	}
	return strings.Trim(builder.String(), "-")
}

// SlugCandidate returns the slug tried on the given attempt: the base slug
// first, then base1, base2 and so on.
func SlugCandidate(baseSlug string, attempt int) string {
	if attempt <= 0 {
		return baseSlug
	}
	return baseSlug + strconv.Itoa(attempt)
}

// usableSlug reports whether a slug can address a space. Slugs shaped like
// space ids are refused so a slug lookup never shadows an id.
func usableSlug(slug string) bool {
	if slug == "" {
		return false
	}
	_, parseErr := uuid.Parse(slug)
	return parseErr != nil
}
