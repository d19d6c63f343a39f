package behavior

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agentrpg.ai/internal/protocol"
)

// Parse stages reported by ParseError.
const (
	StageExtract  = "extract"
	StageDecode   = "decode"
	StageValidate = "validate"
)

// ParseError explains why no intent could be read from a reply.
type ParseError struct {
	Stage    string
	Strategy string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Strategy == "" {
		return fmt.Sprintf("parse action (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("parse action (%s via %s): %v", e.Stage, e.Strategy, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errNoPayload = errors.New("no structured payload found")

// Extraction strategies, highest precedence first.
type strategy struct {
	name string
	find func(text string) (string, bool)
}

var (
	strategyJSONFence = strategy{"json-fence", jsonFence}
	strategyFence     = strategy{"fence", anyFence}
	strategyBraces    = strategy{"braces", braceSpan}
	strategyRaw       = strategy{"raw", rawText}

	replyStrategies = []strategy{strategyJSONFence, strategyFence, strategyBraces, strategyRaw}
)

// Parsed is a successfully extracted payload.
type Parsed struct {
	Intent    Intent
	Reasoning string
	Strategy  string
}

// ParseReply extracts an action payload from free-form backend text. Each
// strategy that finds a candidate is tried in order; the first candidate that
// decodes and validates wins. This is more lenient than strict precedence: a
// broken json fence does not hide a valid object further down the reply. The
// error, if any, is from the highest precedence candidate.
func ParseReply(text string) (Parsed, error) {
	return parseWith(text, replyStrategies)
}

func parseWith(text string, strategies []strategy) (Parsed, error) {
	var first *ParseError
	for _, st := range strategies {
		cand, ok := st.find(text)
		if !ok {
			continue
		}
		p, err := decodeIntent(cand)
		if err == nil {
			p.Strategy = st.name
			return p, nil
		}
		if first == nil {
			err.Strategy = st.name
			first = err
		}
	}
	if first != nil {
		return Parsed{}, first
	}
	return Parsed{}, &ParseError{Stage: StageExtract, Err: errNoPayload}
}

func decodeIntent(cand string) (Parsed, *ParseError) {
	var v any
	if err := json.Unmarshal([]byte(cand), &v); err != nil {
		return Parsed{}, &ParseError{Stage: StageDecode, Err: err}
	}
	if err := protocol.Validate(protocol.SchemaIntent, v); err != nil {
		return Parsed{}, &ParseError{Stage: StageValidate, Err: err}
	}
	obj := v.(map[string]any)
	p := Parsed{
		Intent: Intent{
			Action: obj["action"].(string),
			Params: protocol.Params(obj["params"].(map[string]any)),
		},
	}
	if r, ok := obj["reasoning"].(string); ok {
		p.Reasoning = r
	}
	return p, nil
}

const fence = "```"

// jsonFence finds a block opened with ```json.
func jsonFence(text string) (string, bool) {
	i := strings.Index(text, fence+"json")
	if i < 0 {
		return "", false
	}
	return fenceBody(text[i+len(fence)+len("json"):]), true
}

// anyFence finds the first fenced block of any kind. A language tag on the
// opening line is skipped.
func anyFence(text string) (string, bool) {
	i := strings.Index(text, fence)
	if i < 0 {
		return "", false
	}
	body := fenceBody(text[i+len(fence):])
	if !strings.HasPrefix(body, "{") {
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = strings.TrimSpace(body[nl+1:])
		}
	}
	return body, true
}

// fenceBody returns rest up to the closing fence, or all of it when unclosed.
func fenceBody(rest string) string {
	if j := strings.Index(rest, fence); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// braceSpan takes everything from the first '{' to the last '}'.
func braceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func rawText(text string) (string, bool) {
	t := strings.TrimSpace(text)
	return t, t != ""
}
