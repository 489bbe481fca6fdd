package resolve

import (
	"strings"

	"github.com/ppiankov/entorg/internal/model"
)

// Classifier sorts organisation identifiers into namespace kinds
type Classifier struct {
	governmentPrefix     string
	localAuthorityPrefix string
	overrides            map[string]model.OrganisationKind
}

// NewClassifier creates a classifier for the configured namespace prefixes
func NewClassifier(cfg model.OrganisationConfig) *Classifier {
	gov := cfg.GovernmentPrefix
	if gov == "" {
		gov = model.DefaultConfig().Organisations.GovernmentPrefix
	}
	la := cfg.LocalAuthorityPrefix
	if la == "" {
		la = model.DefaultConfig().Organisations.LocalAuthorityPrefix
	}

	c := &Classifier{
		governmentPrefix:     gov,
		localAuthorityPrefix: la,
		overrides:            make(map[string]model.OrganisationKind, len(cfg.Kinds)),
	}
	for org, kind := range cfg.Kinds {
		c.overrides[strings.TrimSpace(org)] = parseKind(kind)
	}

	return c
}

// Classify returns the namespace kind of an organisation identifier
func (c *Classifier) Classify(org string) model.OrganisationKind {
	if kind, ok := c.overrides[org]; ok {
		return kind
	}

	switch {
	case strings.HasPrefix(org, c.governmentPrefix):
		return model.KindGovernment
	case strings.HasPrefix(org, c.localAuthorityPrefix):
		return model.KindLocalAuthority
	default:
		return model.KindOther
	}
}

// parseKind converts a configured kind name to an OrganisationKind
func parseKind(kind string) model.OrganisationKind {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "government", "government-organisation":
		return model.KindGovernment
	case "local-authority", "la":
		return model.KindLocalAuthority
	default:
		return model.KindOther
	}
}
