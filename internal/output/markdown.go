package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatResult renders a lookup as a markdown section.
func (f *MarkdownFormatter) FormatResult(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s: %s\n\n", escapeMarkdownCell(string(result.Request.Kind)), escapeMarkdownCell(result.Request.Identifier)))
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	for _, row := range resultRows(result) {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", escapeMarkdownCell(row[0]), escapeMarkdownCell(row[1])))
	}
	sb.WriteString("\n> " + FormatOutcome(result.Response, result.Err) + "\n")
	return sb.String(), nil
}

// FormatKinds renders the kinds listing as a markdown table.
func (f *MarkdownFormatter) FormatKinds(kinds []KindInfo) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Kind | Description | Source |\n")
	sb.WriteString("|------|-------------|--------|\n")
	for _, k := range kinds {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			escapeMarkdownCell(string(k.Kind)),
			escapeMarkdownCell(k.Description),
			escapeMarkdownCell(k.Source),
		))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.ReplaceAll(value, "|", "\\|")
}
