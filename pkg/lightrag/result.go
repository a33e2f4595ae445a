package lightrag

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ResultKind tags which rule produced a Result.
type ResultKind string

const (
	KindAnswer       ResultKind = "answer"        // "response" field
	KindSummary      ResultKind = "summary"       // "summary" field
	KindDefault      ResultKind = "default"       // neither field present
	KindServerError  ResultKind = "server_error"  // explicit "error" field
	KindUnavailable  ResultKind = "unavailable"   // transport failure or unreadable body
	KindFailedStatus ResultKind = "failed_status" // non-2xx
)

const DefaultAnswer = "No summary available."

// Reference is one citation record, kept in server order.
type Reference struct {
	ID       string `json:"reference_id,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Raw      string `json:"raw"`
}

// Result is the normalized outcome of one knowledge-server query.
type Result struct {
	Kind       ResultKind
	Answer     string
	Error      string
	References []Reference
}

func (r Result) Failed() bool {
	switch r.Kind {
	case KindServerError, KindUnavailable, KindFailedStatus:
		return true
	}
	return false
}

// Display is the text shown to the user for this result.
func (r Result) Display() string {
	switch r.Kind {
	case KindServerError:
		return "Server error: " + r.Error
	case KindUnavailable, KindFailedStatus:
		return "Server error, please try again later: " + r.Error
	default:
		return r.Answer
	}
}

// RenderReferences lists citations one per line, in the order received.
func (r Result) RenderReferences() string {
	if len(r.References) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("**References:**")
	for i, ref := range r.References {
		label := ref.Raw
		if ref.FilePath != "" {
			label = ref.FilePath
		}
		fmt.Fprintf(&b, "\n[%d] %s", i+1, label)
	}
	return b.String()
}

type extractionRule struct {
	path string
	kind ResultKind
}

// Evaluated top to bottom; the first field present wins.
var extractionRules = []extractionRule{
	{path: "error", kind: KindServerError},
	{path: "response", kind: KindAnswer},
	{path: "summary", kind: KindSummary},
}

// parseResult applies extractionRules to a 2xx body.
func parseResult(body []byte) Result {
	if !gjson.ValidBytes(body) {
		return Result{Kind: KindUnavailable, Error: "invalid JSON in response"}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Result{Kind: KindUnavailable, Error: "response is not a JSON object"}
	}

	res := Result{Kind: KindDefault, Answer: DefaultAnswer}
	for _, rule := range extractionRules {
		field := root.Get(rule.path)
		if !field.Exists() {
			continue
		}
		if rule.kind == KindServerError {
			res = Result{Kind: KindServerError, Error: field.String()}
		} else {
			res = Result{Kind: rule.kind, Answer: field.String()}
		}
		break
	}

	if refs := root.Get("references"); refs.Exists() {
		res.References = parseReferences(refs)
	}
	return res
}

func parseReferences(refs gjson.Result) []Reference {
	out := make([]Reference, 0)
	refs.ForEach(func(_, v gjson.Result) bool {
		ref := Reference{Raw: strings.TrimSpace(v.Raw)}
		if v.IsObject() {
			ref.ID = v.Get("reference_id").String()
			ref.FilePath = v.Get("file_path").String()
		} else if v.Type == gjson.String {
			ref.Raw = v.String()
		}
		out = append(out, ref)
		return true
	})
	return out
}
