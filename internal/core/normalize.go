package core

import "strings"

// reputationAliases maps common spellings onto canonical reputation ids.
var reputationAliases = map[string]string{
	"decentragov_dao":  "decentra_dao",
	"decentragov":      "decentra_dao",
	"decentra_gov_dao": "decentra_dao",
	"decentrag_dao":    "decentra_dao",
	"alex_rodriguez":   "alex_developer",
	"alex":             "alex_developer",
	"rodriguez":        "alex_developer",
}

// Normalize canonicalizes an identifier for lookup within kind.
//
// Every kind is matched case-insensitively downstream, so identifiers are
// lower-cased and whitespace runs collapse to a single separator: "-" for
// CoinGecko asset ids and "_" for the dataset-backed kinds. Reputation
// identifiers are additionally resolved through an alias table. Unknown kinds
// get the trimmed, lower-cased form.
func Normalize(kind EntityKind, raw string) string {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return ""
	}

	switch kind {
	case KindCryptoPrice:
		return strings.Join(fields, "-")
	case KindEducationCredential, KindSupplyChain, KindCarbonFootprint:
		return strings.Join(fields, "_")
	case KindReputationScore:
		value := strings.Join(fields, "_")
		if alias, ok := reputationAliases[value]; ok {
			return alias
		}
		return value
	default:
		return strings.Join(fields, " ")
	}
}

// NormalizeRequest returns a copy of req with its identifier and parameter keys normalized.
func NormalizeRequest(req StructuredRequest) StructuredRequest {
	out := StructuredRequest{
		Kind:       req.Kind,
		Identifier: Normalize(req.Kind, req.Identifier),
	}
	if len(req.Parameters) > 0 {
		out.Parameters = make(map[string]string, len(req.Parameters))
		for key, value := range req.Parameters {
			key = strings.ToLower(strings.TrimSpace(key))
			if key == "" {
				continue
			}
			out.Parameters[key] = strings.TrimSpace(value)
		}
	}
	return out
}
