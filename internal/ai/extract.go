package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrNoObject is returned when no JSON object can be recovered from a response.
var ErrNoObject = errors.New("no json object in response")

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

type extraction func(text string) (map[string]any, bool)

// Tried in order; the first success wins.
var extractions = []extraction{
	wholeText,
	fencedBlock,
	bracedSpan,
}

// ExtractObject recovers a JSON object from free-form model output. It tries
// the whole text, then the contents of a fenced code block, then the first
// brace-delimited object found anywhere in the text.
func ExtractObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoObject
	}
	for _, try := range extractions {
		if obj, ok := try(text); ok {
			return obj, nil
		}
	}
	return nil, ErrNoObject
}

// Decode extracts an object from text and decodes it into T. Scalars are
// weakly typed, so "true" decodes into a bool and 1 into a string.
func Decode[T any](text string) (T, error) {
	var out T

	obj, err := ExtractObject(text)
	if err != nil {
		return out, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(obj); err != nil {
		return out, fmt.Errorf("decode response object: %w", err)
	}

	return out, nil
}

func wholeText(text string) (map[string]any, bool) {
	return parseObject(text)
}

// fencedBlock only looks at the first fence. JSON in a later fence is still
// recovered by bracedSpan.
func fencedBlock(text string) (map[string]any, bool) {
	m := fencePattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil, false
	}
	return parseObject(m[1])
}

func bracedSpan(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	if start == -1 {
		return nil, false
	}

	if end := strings.LastIndex(text, "}"); end > start {
		if obj, ok := parseObject(text[start : end+1]); ok {
			return obj, true
		}
	}

	// prose after the object may contain stray braces
	if end := balancedEnd(text[start:]); end != -1 {
		return parseObject(text[start : start+end+1])
	}

	return nil, false
}

// balancedEnd returns the index of the brace closing the object that opens at
// s[0], or -1.
func balancedEnd(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '{':
			depth++
		case r == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
