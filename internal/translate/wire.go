package translate

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Markers the upstream service embeds in batch-execution responses to tag
// which RPC a line answers.
const (
	TranslationMarker   = "MkEWBc"
	PronunciationMarker = "jQ1olc"
)

// AudioDataURIPrefix prefixes inline pronunciation audio.
const AudioDataURIPrefix = "data:audio/mpeg;base64,"

const legacyMarker = "legacy"

// ProtocolVersion tells which upstream response shape produced a Result.
type ProtocolVersion int

const (
	// ProtocolLegacy is the translate endpoint answering a GET whose query
	// string carries the term and a tk token.
	ProtocolLegacy ProtocolVersion = 1
	// ProtocolBatch is the batch-execution endpoint whose bodies have to be
	// scanned for marker lines.
	ProtocolBatch ProtocolVersion = 2
)

// Payload is the decoded translation structure of one response.
type Payload struct {
	// Raw is the nested-array payload re-serialized as JSON. It is stored
	// verbatim and never interpreted by storage.
	Raw json.RawMessage
	// CorrectedTerm is the spelling the upstream service suggests instead
	// of the requested one, if any.
	CorrectedTerm string
}

type repairStep struct {
	name  string
	apply func(string) string
}

var (
	unescapeQuotes = repairStep{"unescape-quotes", func(s string) string {
		return strings.ReplaceAll(s, `\"`, `"`)
	}}
	dropNewlineEscapes = repairStep{"drop-newline-escapes", func(s string) string {
		return strings.ReplaceAll(s, `\n`, "")
	}}
	// The inner payload is itself JSON inside a JSON string, so markup is
	// escaped twice.
	stripEmphasis = repairStep{"strip-emphasis", strings.NewReplacer(
		`\\u003cb\\u003e`, "",
		`\\u003c/b\\u003e`, "",
		`\\u003ci\\u003e`, "",
		`\\u003c/i\\u003e`, "",
	).Replace}
	closeTranslationString = repairStep{"close-string", func(s string) string {
		return strings.Replace(s, `]]",`, `]],`, 1)
	}}
	closePronunciationString = repairStep{"close-string", func(s string) string {
		return strings.Replace(s, `]",`, `],`, 1)
	}}
	balanceBrackets = repairStep{"balance-brackets", closeOpenArrays}
)

var (
	translationSteps   = []repairStep{unescapeQuotes, dropNewlineEscapes, stripEmphasis, closeTranslationString, balanceBrackets}
	pronunciationSteps = []repairStep{unescapeQuotes, dropNewlineEscapes, closePronunciationString, balanceBrackets}
)

// ParseTranslation decodes the translation line of a batch-execution body.
// The first element's first sub-element is the translation payload; the
// second sub-element, when it is an array, holds correction candidates whose
// first entry's second field is the corrected term.
func ParseTranslation(body string) (*Payload, error) {
	root, err := decodeMarkerLine(body, TranslationMarker, translationSteps)
	if err != nil {
		return nil, err
	}

	first, ok := index(root, 0).([]any)
	if !ok || len(first) == 0 {
		return nil, &ParseError{Marker: TranslationMarker, Step: "extract", Err: errors.New("missing translation entry")}
	}
	raw, err := json.Marshal(first[0])
	if err != nil {
		return nil, &ParseError{Marker: TranslationMarker, Step: "extract", Err: err}
	}

	payload := &Payload{Raw: raw}
	if candidates, ok := index(first, 1).([]any); ok {
		payload.CorrectedTerm, _ = index(candidates, 0, 1).(string)
	}
	return payload, nil
}

// ParsePronunciation decodes the pronunciation line of a batch-execution
// body into a data:audio/mpeg URI.
func ParsePronunciation(body string) (string, error) {
	root, err := decodeMarkerLine(body, PronunciationMarker, pronunciationSteps)
	if err != nil {
		return "", err
	}

	audio, ok := index(root, 0, 0, 0).(string)
	if !ok || audio == "" {
		return "", &ParseError{Marker: PronunciationMarker, Step: "extract", Err: errors.New("missing audio payload")}
	}
	return AudioDataURIPrefix + audio, nil
}

// ParseLegacy decodes a legacy translate endpoint response. The correction
// candidate lives at index 7 as [markup, plain].
func ParseLegacy(body []byte) (*Payload, error) {
	var root any
	decoder := json.NewDecoder(strings.NewReader(string(body)))
	decoder.UseNumber()
	if err := decoder.Decode(&root); err != nil {
		return nil, &ParseError{Marker: legacyMarker, Step: "decode", Err: err}
	}
	if _, ok := root.([]any); !ok {
		return nil, &ParseError{Marker: legacyMarker, Step: "decode", Err: fmt.Errorf("expected array, got %T", root)}
	}

	raw, err := json.Marshal(root)
	if err != nil {
		return nil, &ParseError{Marker: legacyMarker, Step: "extract", Err: err}
	}
	payload := &Payload{Raw: raw}
	payload.CorrectedTerm, _ = index(root, 7, 1).(string)
	return payload, nil
}

// ContainsMarker reports whether any line of body carries marker.
func ContainsMarker(body, marker string) bool {
	_, ok := findMarkerLine(body, marker)
	return ok
}

func decodeMarkerLine(body, marker string, steps []repairStep) (any, error) {
	line, ok := findMarkerLine(body, marker)
	if !ok {
		return nil, ErrMarkerNotFound
	}

	envelope := `[["wrb.fr","` + marker + `","`
	start := strings.Index(line, envelope)
	if start < 0 {
		return nil, &ParseError{Marker: marker, Step: "strip-envelope", Err: errors.New("envelope prefix not found")}
	}
	text := "[[" + line[start+len(envelope):]

	for _, step := range steps {
		text = step.apply(text)
	}

	var root any
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()
	if err := decoder.Decode(&root); err != nil {
		return nil, &ParseError{Marker: marker, Step: "decode", Err: err}
	}
	return root, nil
}

func findMarkerLine(body, marker string) (string, bool) {
	reader := bufio.NewReader(strings.NewReader(body))
	for {
		line, err := reader.ReadString('\n')
		if strings.Contains(line, marker) {
			return strings.TrimRight(line, "\r\n"), true
		}
		if err == io.EOF {
			return "", false
		}
	}
}

// closeOpenArrays appends the closing brackets a truncated line is missing.
// Brackets inside string literals are ignored.
func closeOpenArrays(s string) string {
	depth := 0
	inString := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '[':
			depth++
		case r == ']':
			depth--
		}
	}
	if depth <= 0 {
		return s
	}
	return s + strings.Repeat("]", depth)
}

// index walks nested arrays and returns nil when any step is out of range.
func index(v any, path ...int) any {
	for _, i := range path {
		list, ok := v.([]any)
		if !ok || i < 0 || i >= len(list) {
			return nil
		}
		v = list[i]
	}
	return v
}
