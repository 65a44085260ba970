package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

// Carbon scopes, in auto-detection order.
const (
	ScopeProduct  = "product"
	ScopeCompany  = "company"
	ScopeActivity = "activity"
)

var carbonScopes = []string{ScopeProduct, ScopeCompany, ScopeActivity}

type carbonProduct struct {
	Name             string             `yaml:"name" json:"name"`
	Manufacturer     string             `yaml:"manufacturer" json:"manufacturer"`
	TotalFootprint   float64            `yaml:"totalFootprint" json:"totalFootprint"`
	Breakdown        map[string]float64 `yaml:"breakdown" json:"breakdown"`
	Offsetting       string             `yaml:"offsetting" json:"offsetting,omitempty"`
	Certifications   []string           `yaml:"certifications" json:"certifications"`
	Methodology      string             `yaml:"methodology" json:"methodology"`
	Verifier         string             `yaml:"verifier" json:"verifier"`
	VerificationDate string             `yaml:"verificationDate" json:"verificationDate"`
}

type carbonCompany struct {
	Name             string             `yaml:"name" json:"name"`
	Industry         string             `yaml:"industry" json:"industry"`
	TotalEmissions   float64            `yaml:"totalEmissions" json:"totalEmissions"`
	Breakdown        map[string]float64 `yaml:"breakdown" json:"breakdown"`
	ReductionActions []string           `yaml:"reductionActions" json:"reductionActions,omitempty"`
	ReductionTarget  string             `yaml:"reductionTarget" json:"reductionTarget"`
	Standard         string             `yaml:"standard" json:"standard"`
	Verifier         string             `yaml:"verifier" json:"verifier"`
	VerificationDate string             `yaml:"verificationDate" json:"verificationDate"`
}

type carbonActivity struct {
	Type             string  `yaml:"type" json:"type"`
	Details          string  `yaml:"details" json:"details"`
	Distance         float64 `yaml:"distance" json:"distance,omitempty"`
	Amount           float64 `yaml:"amount" json:"amount,omitempty"`
	Footprint        float64 `yaml:"footprint" json:"footprint"`
	Methodology      string  `yaml:"methodology" json:"methodology"`
	Verifier         string  `yaml:"verifier" json:"verifier"`
	VerificationDate string  `yaml:"verificationDate" json:"verificationDate,omitempty"`
}

type carbonDataset struct {
	Source      string                    `yaml:"source"`
	ProofMethod string                    `yaml:"proofMethod"`
	Products    map[string]carbonProduct  `yaml:"products"`
	Companies   map[string]carbonCompany  `yaml:"companies"`
	Activities  map[string]carbonActivity `yaml:"activities"`
}

type carbonProof struct {
	Method string `json:"method"`
	Hash   string `json:"hash"`
}

type carbonVerification struct {
	Methodology string      `json:"methodology,omitempty"`
	Standard    string      `json:"standard,omitempty"`
	Verifier    string      `json:"verifier"`
	Date        string      `json:"date,omitempty"`
	Proof       carbonProof `json:"proof"`
}

type carbonAmount struct {
	Total     float64            `json:"total"`
	Unit      string             `json:"unit"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
	Distance  float64            `json:"distance,omitempty"`
	Amount    float64            `json:"amount,omitempty"`
}

type carbonEntity struct {
	Name         string `json:"name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Industry     string `json:"industry,omitempty"`
	Type         string `json:"type,omitempty"`
	Details      string `json:"details,omitempty"`
}

type carbonPayload struct {
	Scope           string             `json:"scope"`
	Entity          carbonEntity       `json:"entity"`
	CarbonFootprint *carbonAmount      `json:"carbonFootprint,omitempty"`
	Emissions       *carbonAmount      `json:"emissions,omitempty"`
	Certifications  []string           `json:"certifications,omitempty"`
	Targets         string             `json:"targets,omitempty"`
	Offsetting      string             `json:"offsetting,omitempty"`
	Verification    carbonVerification `json:"verification"`
}

// CarbonSource serves product, company and activity footprints.
type CarbonSource struct {
	data carbonDataset
}

// NewCarbonSource loads the embedded carbon accounting dataset.
func NewCarbonSource() (*CarbonSource, error) {
	s := &CarbonSource{}
	if err := loadDataset("carbon.yaml", &s.data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CarbonSource) Kind() core.EntityKind { return core.KindCarbonFootprint }

func (s *CarbonSource) Describe() string { return s.data.Source }

// Fetch resolves the identifier in the requested scope, or the first scope
// that contains it when no usable scope parameter is given.
func (s *CarbonSource) Fetch(ctx context.Context, identifier string, params map[string]string) (*core.Record, error) {
	requested := strings.ToLower(param(params, "scope"))
	scope := ""
	if requested != "" && s.has(requested, identifier) {
		scope = requested
	} else {
		for _, candidate := range carbonScopes {
			if s.has(candidate, identifier) {
				scope = candidate
				break
			}
		}
	}

	if scope == "" {
		if requested != "" && isCarbonScope(requested) {
			return nil, notFound("no carbon footprint information found for %s %q", requested, identifier)
		}
		return nil, notFound("no carbon footprint information found for %q in any scope (%s)", identifier, strings.Join(carbonScopes, ", "))
	}

	var (
		body    carbonPayload
		subject any
		summary string
	)
	body.Scope = scope

	switch scope {
	case ScopeProduct:
		p := s.data.Products[identifier]
		subject = p
		body.Entity = carbonEntity{Name: p.Name, Manufacturer: p.Manufacturer}
		body.CarbonFootprint = &carbonAmount{Total: p.TotalFootprint, Unit: "kg CO2e", Breakdown: p.Breakdown}
		body.Certifications = p.Certifications
		body.Offsetting = p.Offsetting
		body.Verification = carbonVerification{Methodology: p.Methodology, Verifier: p.Verifier, Date: p.VerificationDate}
		summary = carbonSummary(p.Methodology, p.Verifier)
	case ScopeCompany:
		c := s.data.Companies[identifier]
		subject = c
		body.Entity = carbonEntity{Name: c.Name, Industry: c.Industry}
		body.Emissions = &carbonAmount{Total: c.TotalEmissions, Unit: "metric tons CO2e", Breakdown: c.Breakdown}
		body.Targets = c.ReductionTarget
		body.Verification = carbonVerification{Standard: c.Standard, Verifier: c.Verifier, Date: c.VerificationDate}
		summary = carbonSummary(c.Standard, c.Verifier)
	default:
		a := s.data.Activities[identifier]
		subject = a
		body.Entity = carbonEntity{Type: a.Type, Details: a.Details}
		body.CarbonFootprint = &carbonAmount{Total: a.Footprint, Unit: "kg CO2e", Distance: a.Distance, Amount: a.Amount}
		body.Verification = carbonVerification{Methodology: a.Methodology, Verifier: a.Verifier, Date: a.VerificationDate}
		summary = carbonSummary(a.Methodology, a.Verifier)
	}

	proof, err := ProofHash(subject)
	if err != nil {
		return nil, err
	}
	body.Verification.Proof = carbonProof{Method: s.data.ProofMethod, Hash: proof}

	payload, err := toPayload(body)
	if err != nil {
		return nil, err
	}

	return &core.Record{
		Payload:   payload,
		Source:    s.data.Source,
		Summary:   summary,
		ProofHash: proof,
	}, nil
}

func (s *CarbonSource) has(scope, identifier string) bool {
	switch scope {
	case ScopeProduct:
		_, ok := s.data.Products[identifier]
		return ok
	case ScopeCompany:
		_, ok := s.data.Companies[identifier]
		return ok
	case ScopeActivity:
		_, ok := s.data.Activities[identifier]
		return ok
	default:
		return false
	}
}

func isCarbonScope(scope string) bool {
	for _, candidate := range carbonScopes {
		if candidate == scope {
			return true
		}
	}
	return false
}

func carbonSummary(method, verifier string) string {
	if method == "" {
		method = "international standards"
	}
	if verifier == "" {
		verifier = "accredited verifier"
	}
	return fmt.Sprintf("Carbon footprint data verified following %s by %s.", method, verifier)
}
