package output

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatResult renders one lookup as a field/value table followed by the chat message.
func (f *TableFormatter) FormatResult(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, row := range resultRows(result) {
		t.AppendRow(table.Row{row[0], row[1]})
	}

	return t.Render() + "\n\n" + FormatOutcome(result.Response, result.Err), nil
}

// FormatKinds renders the supported kinds listing.
func (f *TableFormatter) FormatKinds(kinds []KindInfo) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Kind", "Description", "Source"})
	for _, k := range kinds {
		t.AppendRow(table.Row{string(k.Kind), k.Description, k.Source})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d %s", len(kinds), plural(len(kinds), "kind", "kinds"))})
	return t.Render(), nil
}

// resultRows lists the rows shared by the table and markdown renderers.
func resultRows(result *Result) [][2]string {
	rows := [][2]string{
		{"kind", string(result.Request.Kind)},
		{"identifier", result.Request.Identifier},
	}
	for _, key := range sortedParamKeys(result.Request.Parameters) {
		rows = append(rows, [2]string{"param." + key, result.Request.Parameters[key]})
	}

	if result.Err != nil {
		doc := newResultDoc(result)
		return append(rows,
			[2]string{"status", "error"},
			[2]string{"error", string(doc.Error.Kind)},
			[2]string{"detail", doc.Error.Message},
		)
	}

	resp := result.Response
	if resp == nil {
		return append(rows, [2]string{"status", "no data"})
	}
	rows = append(rows, [2]string{"status", "verified"})
	fieldRows("", resp.Payload, &rows)
	rows = append(rows,
		[2]string{"source", resp.Source},
		[2]string{"retrieved_at", resp.RetrievedAt.UTC().Format(time.RFC3339)},
		[2]string{"request_id", resp.Provenance.RequestID},
		[2]string{"from_cache", strconv.FormatBool(resp.Provenance.FromCache)},
	)
	if resp.Provenance.ProofHash != "" {
		rows = append(rows, [2]string{"proof_hash", resp.Provenance.ProofHash})
	}
	return rows
}

func sortedParamKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
