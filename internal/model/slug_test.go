package model

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "spaces become hyphens", input: "Acme Feedback", expected: "acme-feedback"},
		{name: "whitespace runs collapse", input: "  Acme \t  Feedback\n", expected: "acme-feedback"},
		{name: "punctuation dropped", input: "Acme's Feedback!", expected: "acmes-feedback"},
		{name: "hyphens collapse", input: "Acme - Feedback", expected: "acme-feedback"},
		{name: "underscore kept", input: "acme_feedback", expected: "acme_feedback"},
		{name: "digits kept", input: "Demo 2", expected: "demo-2"},
		{name: "unicode letters kept", input: "Café Crème", expected: "café-crème"},
		{name: "nothing usable", input: "!!! ???", expected: ""},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(testingT *testing.T) {
			slug := Slugify(testCase.input)
			require.Equal(testingT, testCase.expected, slug)
			require.Equal(testingT, strings.ToLower(slug), slug)
			require.False(testingT, strings.ContainsFunc(slug, unicode.IsSpace))
		})
	}
}

func TestSlugCandidate(t *testing.T) {
	require.Equal(t, "demo", SlugCandidate("demo", 0))
	require.Equal(t, "demo1", SlugCandidate("demo", 1))
	require.Equal(t, "demo12", SlugCandidate("demo", 12))
}
