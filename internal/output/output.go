package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Result is one structured lookup as rendered by the CLI: the request plus
// either its response or its failure.
type Result struct {
	Request  core.StructuredRequest
	Response *core.StructuredResponse
	Err      error
}

// KindInfo describes one entry of the supported kinds listing.
type KindInfo struct {
	Kind        core.EntityKind `json:"entity_kind"`
	Description string          `json:"description"`
	Source      string          `json:"source"`
}

// Formatter renders structured results and the kinds listing.
type Formatter interface {
	FormatResult(result *Result) (string, error)
	FormatKinds(kinds []KindInfo) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// resultDoc is the JSON shape of a Result.
type resultDoc struct {
	Request  core.StructuredRequest   `json:"request"`
	Response *core.StructuredResponse `json:"response,omitempty"`
	Error    *errorDoc                `json:"error,omitempty"`
	Message  string                   `json:"message"`
}

type errorDoc struct {
	Kind    core.ErrorKind `json:"kind"`
	Message string         `json:"message"`
}

func newResultDoc(result *Result) resultDoc {
	doc := resultDoc{
		Request:  result.Request,
		Response: result.Response,
		Message:  FormatOutcome(result.Response, result.Err),
	}
	if result.Err != nil {
		doc.Error = &errorDoc{Kind: errorKind(result.Err), Message: result.Err.Error()}
		if e, ok := core.AsError(result.Err); ok {
			doc.Error.Message = e.Message
		}
	}
	return doc
}

func errorKind(err error) core.ErrorKind {
	if kind := core.KindOf(err); kind != "" {
		return kind
	}
	return "Internal"
}

// fieldRows flattens a payload into sorted dotted-path rows.
func fieldRows(prefix string, value any, rows *[][2]string) {
	switch typed := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(typed) {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			fieldRows(path, typed[key], rows)
		}
	case []any:
		if allScalars(typed) {
			parts := make([]string, 0, len(typed))
			for _, item := range typed {
				parts = append(parts, scalarString(item))
			}
			*rows = append(*rows, [2]string{prefix, strings.Join(parts, ", ")})
			return
		}
		for i, item := range typed {
			fieldRows(fmt.Sprintf("%s[%d]", prefix, i), item, rows)
		}
	default:
		*rows = append(*rows, [2]string{prefix, scalarString(typed)})
	}
}

func allScalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

func scalarString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return formatNumber(typed)
	case bool, int, int64:
		return fmt.Sprint(typed)
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(raw)
	}
}
