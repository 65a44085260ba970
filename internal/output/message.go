package output

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

var printer = message.NewPrinter(language.English)

var currencySymbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
}

// FormatOutcome renders a response or an error as a single chat message. A non-nil
// err wins over resp.
func FormatOutcome(resp *core.StructuredResponse, err error) string {
	if err != nil {
		return FormatError(err)
	}
	if resp == nil {
		return FormatError(nil)
	}
	return FormatResponse(resp)
}

// FormatResponse renders a successful lookup as one paragraph ending with the
// source attribution and the retrieval time. A zero RetrievedAt is omitted.
func FormatResponse(resp *core.StructuredResponse) string {
	if resp == nil {
		return FormatError(nil)
	}

	sentences := []string{describe(resp)}
	if summary := strings.TrimSpace(resp.Summary); summary != "" {
		sentences = append(sentences, "Verification: "+sentence(summary))
	}
	src := strings.TrimSpace(resp.Source)
	if src == "" {
		src = resp.Provenance.Source
	}
	if src != "" {
		sentences = append(sentences, "Source: "+sentence(src))
	}

	if !resp.RetrievedAt.IsZero() {
		sentences = append(sentences, "Retrieved at "+resp.RetrievedAt.UTC().Format(time.RFC3339)+".")
	}

	return strings.Join(sentences, " ")
}

// FormatError renders a failure as a short apology with a hint. Internal
// detail carried by err is never shown.
func FormatError(err error) string {
	switch core.KindOf(err) {
	case core.ErrUnknownEntityKind:
		return "Sorry, I can't help with that kind of data yet. I can look up crypto prices, education credentials, supply chains, carbon footprints and reputation scores."
	case core.ErrIdentifierNotFound:
		return "Sorry, I couldn't find any records for that. Please check the name or identifier and try again."
	case core.ErrUpstreamUnavailable:
		return "Sorry, the data source is unavailable right now. Please try again in a moment."
	case core.ErrQuotaExceeded:
		return "Sorry, you've reached the request limit for now. Please slow down and try again later."
	case core.ErrInterpretationFailed:
		return `Sorry, I didn't understand that request. Could you rephrase it? For example: "What is the price of Bitcoin in USD?"`
	default:
		return "Sorry, something went wrong while handling your request. Please try again."
	}
}

func describe(resp *core.StructuredResponse) string {
	p := resp.Payload
	var text string
	switch resp.Kind {
	case core.KindCryptoPrice:
		text = describeCrypto(resp.Identifier, p)
	case core.KindEducationCredential:
		text = describeEducation(resp.Identifier, p)
	case core.KindSupplyChain:
		text = describeSupplyChain(resp.Identifier, p)
	case core.KindCarbonFootprint:
		text = describeCarbon(resp.Identifier, p)
	case core.KindReputationScore:
		text = describeReputation(resp.Identifier, p)
	}
	if text == "" {
		text = describeGeneric(resp)
	}
	return text
}

func describeCrypto(identifier string, p map[string]any) string {
	price, ok := number(p, "price")
	if !ok {
		return ""
	}
	asset := str(p, "asset_id")
	if asset == "" {
		asset = identifier
	}
	currency := str(p, "currency")
	if currency == "" {
		currency = "usd"
	}
	return fmt.Sprintf("The current price of %s is %s.", displayName(asset), FormatMoney(price, currency))
}

func describeEducation(identifier string, p map[string]any) string {
	name := str(p, "profile", "name")
	if name == "" {
		name = displayName(identifier)
	}
	creds := list(p, "credentials")
	if len(creds) == 0 {
		return fmt.Sprintf("%s has no verified credentials on record.", name)
	}

	items := make([]string, 0, len(creds))
	for _, raw := range creds {
		cred, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		item := str(cred, "name")
		if issuer := str(cred, "issuer"); issuer != "" {
			item += " from " + issuer
		}
		if status := str(cred, "verificationStatus"); status != "" {
			item += " (" + strings.ToLower(status) + ")"
		}
		items = append(items, item)
	}
	return fmt.Sprintf("%s holds %d %s: %s.", name, len(creds), plural(len(creds), "credential", "credentials"), strings.Join(items, "; "))
}

func describeSupplyChain(identifier string, p map[string]any) string {
	name := str(p, "product", "name")
	if name == "" {
		name = displayName(identifier)
	}
	if maker := str(p, "product", "manufacturer"); maker != "" {
		name += " by " + maker
	}

	stages := list(p, "supplyChain")
	steps := make([]string, 0, len(stages))
	for _, raw := range stages {
		stage, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		step := str(stage, "stage")
		if loc := str(stage, "location"); loc != "" {
			step += " in " + loc
		}
		steps = append(steps, step)
	}

	parts := []string{fmt.Sprintf("%s passed through %d verified %s", name, len(steps), plural(len(steps), "stage", "stages"))}
	if len(steps) > 0 {
		parts[0] += ": " + strings.Join(steps, ", then ")
	}
	parts[0] += "."
	if certs := stringList(p, "certifications"); len(certs) > 0 {
		parts = append(parts, "Certifications: "+strings.Join(certs, ", ")+".")
	}
	if footprint := str(p, "sustainability", "carbonFootprint"); footprint != "" {
		parts = append(parts, "Carbon footprint: "+sentence(footprint))
	}
	return strings.Join(parts, " ")
}

func describeCarbon(identifier string, p map[string]any) string {
	scope := str(p, "scope")
	switch scope {
	case "company":
		total, ok := number(p, "emissions", "total")
		if !ok {
			return ""
		}
		name := orDefault(str(p, "entity", "name"), displayName(identifier))
		if industry := str(p, "entity", "industry"); industry != "" {
			name += " (" + industry + ")"
		}
		text := fmt.Sprintf("%s reported total emissions of %s %s.", name, formatNumber(total), str(p, "emissions", "unit"))
		if target := str(p, "targets"); target != "" {
			text += " Reduction target: " + sentence(target)
		}
		return text
	case "activity":
		total, ok := number(p, "carbonFootprint", "total")
		if !ok {
			return ""
		}
		name := orDefault(str(p, "entity", "details"), displayName(identifier))
		return fmt.Sprintf("The carbon footprint of %s is %s %s.", name, formatNumber(total), str(p, "carbonFootprint", "unit"))
	default:
		total, ok := number(p, "carbonFootprint", "total")
		if !ok {
			return ""
		}
		name := orDefault(str(p, "entity", "name"), displayName(identifier))
		if maker := str(p, "entity", "manufacturer"); maker != "" {
			name += " by " + maker
		}
		text := fmt.Sprintf("The carbon footprint of %s is %s %s over its lifecycle.", name, formatNumber(total), str(p, "carbonFootprint", "unit"))
		if offset := str(p, "offsetting"); offset != "" {
			text += " Offsetting: " + sentence(offset)
		}
		return text
	}
}

func describeReputation(identifier string, p map[string]any) string {
	score, ok := number(p, "reputationScores", "overall")
	if !ok {
		return ""
	}
	name := orDefault(str(p, "entityInfo", "name"), displayName(identifier))
	aspect := str(p, "aspect")
	if aspect == "" || aspect == "general" {
		return fmt.Sprintf("%s has an overall reputation score of %s out of 100.", name, formatNumber(score))
	}
	return fmt.Sprintf("%s has a %s reputation score of %s out of 100.", name, aspect, formatNumber(score))
}

func describeGeneric(resp *core.StructuredResponse) string {
	var rows [][2]string
	fieldRows("", resp.Payload, &rows)
	if len(rows) == 0 {
		return fmt.Sprintf("Verified %s data for %s is available.", strings.ReplaceAll(string(resp.Kind), "_", " "), displayName(resp.Identifier))
	}
	pairs := make([]string, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, row[0]+" "+row[1])
	}
	return fmt.Sprintf("Verified %s data for %s: %s.", strings.ReplaceAll(string(resp.Kind), "_", " "), displayName(resp.Identifier), strings.Join(pairs, ", "))
}

// FormatMoney renders amount with the currency symbol, thousands grouping and
// the upper-case currency code, e.g. "$67,234.12 USD".
func FormatMoney(amount float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	symbol := currencySymbols[strings.ToLower(code)]

	var digits string
	switch abs := math.Abs(amount); {
	case abs == 0 || abs >= 1:
		digits = printer.Sprintf("%.2f", amount)
	case abs >= 0.01:
		digits = printer.Sprintf("%.4f", amount)
	default:
		digits = printer.Sprintf("%.8f", amount)
	}

	if symbol == "" {
		return digits + " " + code
	}
	return symbol + digits + " " + code
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.2f", v)
}

func displayName(identifier string) string {
	words := strings.FieldsFunc(identifier, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") || strings.HasSuffix(s, ")") {
		return s
	}
	return s + "."
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func lookup(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func str(m map[string]any, path ...string) string {
	v, ok := lookup(m, path...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func number(m map[string]any, path ...string) (float64, bool) {
	v, ok := lookup(m, path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func list(m map[string]any, path ...string) []any {
	v, ok := lookup(m, path...)
	if !ok {
		return nil
	}
	items, _ := v.([]any)
	return items
}

func stringList(m map[string]any, path ...string) []string {
	v, ok := lookup(m, path...)
	if !ok {
		return nil
	}
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
