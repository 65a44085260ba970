package source

import (
	"context"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

// Stage is one attested step of a product journey.
type Stage struct {
	Stage              string `yaml:"stage" json:"stage"`
	Location           string `yaml:"location" json:"location"`
	Timestamp          string `yaml:"timestamp" json:"timestamp"`
	VerificationMethod string `yaml:"verificationMethod" json:"verificationMethod"`
	Verifier           string `yaml:"verifier" json:"verifier"`
}

type supplyChainProduct struct {
	Name              string   `yaml:"name" json:"name"`
	Manufacturer      string   `yaml:"manufacturer" json:"manufacturer"`
	Chain             []Stage  `yaml:"chain" json:"chain"`
	Certifications    []string `yaml:"certifications" json:"certifications"`
	CarbonFootprint   string   `yaml:"carbonFootprint" json:"carbonFootprint"`
	BlockchainRecords string   `yaml:"blockchainRecords" json:"blockchainRecords"`
}

type supplyChainDataset struct {
	Source      string                        `yaml:"source"`
	Summary     string                        `yaml:"summary"`
	ProofMethod string                        `yaml:"proofMethod"`
	Records     map[string]supplyChainProduct `yaml:"records"`
}

type supplyChainPayload struct {
	Product struct {
		Name         string `json:"name"`
		Manufacturer string `json:"manufacturer"`
	} `json:"product"`
	SupplyChain    []Stage  `json:"supplyChain"`
	Certifications []string `json:"certifications"`
	Sustainability struct {
		CarbonFootprint string `json:"carbonFootprint"`
	} `json:"sustainability"`
	VerificationProof struct {
		Method              string `json:"method"`
		Hash                string `json:"hash"`
		BlockchainReference string `json:"blockchainReference"`
	} `json:"verificationProof"`
}

// SupplyChainSource serves product journeys from the embedded ledger dataset.
type SupplyChainSource struct {
	data supplyChainDataset
}

// NewSupplyChainSource loads the embedded supply chain dataset.
func NewSupplyChainSource() (*SupplyChainSource, error) {
	s := &SupplyChainSource{}
	if err := loadDataset("supplychain.yaml", &s.data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SupplyChainSource) Kind() core.EntityKind { return core.KindSupplyChain }

func (s *SupplyChainSource) Describe() string { return s.data.Source }

// Fetch returns the attested journey for a product identifier.
func (s *SupplyChainSource) Fetch(ctx context.Context, identifier string, _ map[string]string) (*core.Record, error) {
	product, ok := s.data.Records[identifier]
	if !ok {
		return nil, notFound("no supply chain information found for product %q", identifier)
	}

	proof, err := ProofHash(product)
	if err != nil {
		return nil, err
	}

	var body supplyChainPayload
	body.Product.Name = product.Name
	body.Product.Manufacturer = product.Manufacturer
	body.SupplyChain = product.Chain
	body.Certifications = product.Certifications
	body.Sustainability.CarbonFootprint = product.CarbonFootprint
	body.VerificationProof.Method = s.data.ProofMethod
	body.VerificationProof.Hash = proof
	body.VerificationProof.BlockchainReference = product.BlockchainRecords

	payload, err := toPayload(body)
	if err != nil {
		return nil, err
	}

	return &core.Record{
		Payload:   payload,
		Source:    s.data.Source,
		Summary:   s.data.Summary,
		ProofHash: proof,
	}, nil
}
