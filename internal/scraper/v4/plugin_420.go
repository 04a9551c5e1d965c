package v4

import (
	"context"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/models"
)

// selectors420 patches the fields that changed in the 4.2.0 release:
// the access-denied banner moved from a dedicated element to a class
// on the page body, and the authority field gained a nested span.
var selectors420 = func() Selectors {
	s := defaultSelectors
	s.AccessDeniedBanner = `body.sem-acesso`
	s.AccessPartialBanner = `body.acesso-parcial`
	s.AuthorityField = `.orgao-julgador .nome-orgao`
	return s
}()

// Plugin420 is the 4.2.0 override: it embeds FamilyDefaults for every
// operation that didn't change and replaces only ClassifyAccess, whose
// banner moved onto <body> in this release, and the selector table it
// reads from.
type Plugin420 struct {
	FamilyDefaults
}

// NewPlugin420 builds the 4.2.0 plugin for a tenant's base URL.
func NewPlugin420(baseURL string) *Plugin420 {
	return &Plugin420{FamilyDefaults: FamilyDefaults{BaseURL: baseURL, Selectors: selectors420}}
}

func (p *Plugin420) ClassifyAccess(ctx context.Context) (models.AccessType, error) {
	doc, err := p.parseDoc(ctx)
	if err != nil {
		return "", err
	}
	accessType, ok := parseAccessType420(doc, p.Selectors)
	if !ok {
		return "", apperrors.NewPluginError(errClassifyAmbiguous, "classify_access")
	}
	return accessType, nil
}

type classifyAmbiguousError struct{}

func (classifyAmbiguousError) Error() string {
	return "process page carries neither an access banner nor a document table"
}

var errClassifyAmbiguous = classifyAmbiguousError{}
