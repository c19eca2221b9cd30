package main

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidServeMode = errors.New("invalid serve mode")

// ServeMode selects which halves of the server a process runs.
type ServeMode string

const (
	ServeModeMonolith ServeMode = "monolith"
	ServeModeWeb      ServeMode = "web"
	ServeModeAPI      ServeMode = "api"
)

func ParseServeMode(rawInput string) (ServeMode, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawInput))
	if normalized == "" {
		return ServeModeMonolith, nil
	}

	mode := ServeMode(normalized)
	switch mode {
	case ServeModeMonolith, ServeModeWeb, ServeModeAPI:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidServeMode, rawInput)
	}
}

// servesAPI reports whether the JSON API and its database are needed.
func (mode ServeMode) servesAPI() bool {
	return mode == ServeModeMonolith || mode == ServeModeAPI
}

// servesWeb reports whether the collection and embed pages are mounted.
func (mode ServeMode) servesWeb() bool {
	return mode == ServeModeMonolith || mode == ServeModeWeb
}
