package source

import (
	"context"
	"encoding/base32"
	"strings"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

// Credential is a single issued credential.
type Credential struct {
	Type               string `yaml:"type" json:"type"`
	Name               string `yaml:"name" json:"name"`
	Issuer             string `yaml:"issuer" json:"issuer"`
	IssueDate          string `yaml:"issueDate" json:"issueDate"`
	VerificationStatus string `yaml:"verificationStatus" json:"verificationStatus"`
	IssuerDID          string `yaml:"did" json:"did"`
	ProofMethod        string `yaml:"proofMethod" json:"proofMethod"`
}

type educationHolder struct {
	Name        string       `yaml:"name" json:"name"`
	Credentials []Credential `yaml:"credentials" json:"credentials"`
}

type educationProfile struct {
	Name          string `json:"name"`
	IdentifierDID string `json:"identifierDid"`
}

type educationPayload struct {
	Profile           educationProfile `json:"profile"`
	Credentials       []Credential     `json:"credentials"`
	VerificationProof string           `json:"verificationProof"`
}

type educationDataset struct {
	Source  string                     `yaml:"source"`
	Summary string                     `yaml:"summary"`
	Records map[string]educationHolder `yaml:"records"`
}

// EducationSource serves credentials from the embedded identity network dataset.
type EducationSource struct {
	data educationDataset
}

// NewEducationSource loads the embedded credential dataset.
func NewEducationSource() (*EducationSource, error) {
	s := &EducationSource{}
	if err := loadDataset("education.yaml", &s.data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EducationSource) Kind() core.EntityKind { return core.KindEducationCredential }

func (s *EducationSource) Describe() string { return s.data.Source }

// Fetch returns the holder profile and credentials for identifier.
func (s *EducationSource) Fetch(ctx context.Context, identifier string, _ map[string]string) (*core.Record, error) {
	holder, ok := s.data.Records[identifier]
	if !ok {
		return nil, notFound("no education credentials found for %q", identifier)
	}

	proof, err := ProofHash(holder)
	if err != nil {
		return nil, err
	}

	payload, err := toPayload(educationPayload{
		Profile: educationProfile{
			Name:          holder.Name,
			IdentifierDID: holderDID(identifier),
		},
		Credentials:       holder.Credentials,
		VerificationProof: proof,
	})
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

// holderDID derives a stable decentralized id for a credential holder.
func holderDID(identifier string) string {
	encoded := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(identifier)))
	if len(encoded) > 16 {
		encoded = encoded[:16]
	}
	return "did:fetch:" + encoded
}
