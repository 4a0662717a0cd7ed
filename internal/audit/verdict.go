package audit

import (
	"encoding/json"
	"strings"

	"guardian/internal/logging"
)

// Verdict statuses and actions. Routing keys off Action alone: anything
// other than an explicit APPROVE is disputed.
const (
	StatusPass    = "PASS"
	StatusFail    = "FAIL"
	StatusUnknown = "UNKNOWN"

	ActionApprove = "APPROVE"
	ActionDispute = "DISPUTE"
)

// Fallback reasons for unusable oracle output. Each failure mode gets its
// own reason so operators can tell them apart in the narrative.
const (
	ReasonOutputError     = "AI Output Error"
	ReasonProcessingError = "Processing Error"
	ReasonOracleError     = "Oracle Error"
)

// Verdict is the structured ruling recovered from oracle output.
type Verdict struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Action string `json:"action"`
}

// FallbackVerdict builds the fail-closed verdict used whenever oracle output
// cannot be turned into a ruling.
func FallbackVerdict(reason string) Verdict {
	return Verdict{Status: StatusFail, Reason: reason, Action: ActionDispute}
}

// ParseVerdict recovers a Verdict from raw oracle output. It is total: no
// input, however mangled, returns an error. Models wrap JSON in markdown
// fences, prepend chatter, or append trailing prose; the parser strips all
// of that and decodes the outermost object it can find. Unusable output
// yields a disputing fallback verdict.
func ParseVerdict(raw string) Verdict {
	cleaned := stripCodeFences(raw)

	start := strings.Index(cleaned, "{")
	if start == -1 {
		logging.Audit("verdict parse: no JSON object in output (len=%d)", len(raw))
		return FallbackVerdict(ReasonOutputError)
	}
	end := strings.LastIndex(cleaned, "}")
	if end > start {
		cleaned = cleaned[start : end+1]
	} else {
		cleaned = cleaned[start:]
	}

	var v Verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		logging.Audit("verdict parse: malformed JSON: %v", err)
		return FallbackVerdict(ReasonProcessingError)
	}

	if v.Status == "" {
		v.Status = StatusUnknown
	}
	return v
}

// stripCodeFences extracts the content between the first markdown fence
// marker and the next one. Output without fences passes through untouched.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	marker := "```json"
	idx := strings.Index(s, marker)
	if idx == -1 {
		marker = "```"
		idx = strings.Index(s, marker)
	}
	if idx == -1 {
		return s
	}

	s = s[idx+len(marker):]
	if end := strings.Index(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// CleanDisplay prepares labeled-text oracle output for terminal display:
// markdown emphasis markers go, surrounding whitespace goes.
func CleanDisplay(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "**", ""))
}
