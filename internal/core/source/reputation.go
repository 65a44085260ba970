package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

// AspectGeneral is served when no specific aspect is requested or available.
const AspectGeneral = "general"

type reputationAspect struct {
	Name               string         `yaml:"name" json:"name"`
	DID                string         `yaml:"did" json:"did"`
	Score              int            `yaml:"score" json:"score"`
	ProofReference     string         `yaml:"proofReference" json:"proofReference,omitempty"`
	Statistics         map[string]any `yaml:"statistics" json:"statistics,omitempty"`
	Breakdown          map[string]int `yaml:"breakdown" json:"breakdown,omitempty"`
	Highlights         []string       `yaml:"highlights" json:"highlights,omitempty"`
	VerificationMethod string         `yaml:"verificationMethod" json:"verificationMethod"`
	Attesters          []string       `yaml:"attesters" json:"attesters"`
}

type reputationDataset struct {
	Source   string                                 `yaml:"source"`
	Entities map[string]map[string]reputationAspect `yaml:"entities"`
}

type reputationPayload struct {
	Aspect     string `json:"aspect"`
	EntityInfo struct {
		Name            string `json:"name"`
		DecentralizedID string `json:"decentralizedId"`
	} `json:"entityInfo"`
	ReputationScores struct {
		Overall   int            `json:"overall"`
		Breakdown map[string]int `json:"breakdown,omitempty"`
	} `json:"reputationScores"`
	Statistics   map[string]any `json:"statistics,omitempty"`
	Highlights   []string       `json:"highlights,omitempty"`
	Verification struct {
		Method         string   `json:"method"`
		Attesters      []string `json:"attesters"`
		ProofReference string   `json:"proofReference,omitempty"`
	} `json:"verification"`
}

// ReputationSource serves aggregated reputation scores.
type ReputationSource struct {
	data reputationDataset
}

// NewReputationSource loads the embedded reputation dataset.
func NewReputationSource() (*ReputationSource, error) {
	s := &ReputationSource{}
	if err := loadDataset("reputation.yaml", &s.data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ReputationSource) Kind() core.EntityKind { return core.KindReputationScore }

func (s *ReputationSource) Describe() string { return s.data.Source }

// Fetch returns the requested aspect of an entity's reputation, falling back to general.
func (s *ReputationSource) Fetch(ctx context.Context, identifier string, params map[string]string) (*core.Record, error) {
	aspects, ok := s.data.Entities[identifier]
	if !ok {
		return nil, notFound("no reputation information found for %q", identifier)
	}

	aspect := AspectGeneral
	if requested := strings.ToLower(param(params, "aspect")); requested != "" {
		if _, ok := aspects[requested]; ok {
			aspect = requested
		}
	}

	data, ok := aspects[aspect]
	if !ok {
		return nil, notFound("no reputation information found for %q with aspect %q, available aspects: %s",
			identifier, aspect, strings.Join(sortedKeys(aspects), ", "))
	}

	proof, err := ProofHash(data)
	if err != nil {
		return nil, err
	}

	var body reputationPayload
	body.Aspect = aspect
	body.EntityInfo.Name = data.Name
	body.EntityInfo.DecentralizedID = data.DID
	body.ReputationScores.Overall = data.Score
	body.ReputationScores.Breakdown = data.Breakdown
	body.Statistics = data.Statistics
	body.Highlights = data.Highlights
	body.Verification.Method = data.VerificationMethod
	body.Verification.Attesters = data.Attesters
	body.Verification.ProofReference = data.ProofReference

	payload, err := toPayload(body)
	if err != nil {
		return nil, err
	}

	return &core.Record{
		Payload:   payload,
		Source:    s.data.Source,
		Summary:   fmt.Sprintf("Reputation data verified through %s with attestations from %s.", data.VerificationMethod, strings.Join(data.Attesters, ", ")),
		ProofHash: proof,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
