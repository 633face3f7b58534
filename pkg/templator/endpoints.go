package templator

import (
	"fmt"

	"github.com/terabiome/stackbuilder/pkg/constants"
)

// EndpointVars are the values available to endpoint URL templates.
type EndpointVars struct {
	Domain string
	Path   string
	Realm  string
}

// Endpoints renders the identity-provider and service URLs of one deployed
// instance.
type Endpoints struct {
	engine *Engine
	domain string
	path   string
}

// NewEndpoints parses the token and service URL templates. Empty templates
// fall back to the defaults.
func NewEndpoints(tokenURLTemplate, serviceURLTemplate, domain, path string) (*Endpoints, error) {
	if tokenURLTemplate == "" {
		tokenURLTemplate = constants.DefaultTokenURLTemplate
	}
	if serviceURLTemplate == "" {
		serviceURLTemplate = constants.DefaultServiceURLTemplate
	}

	engine := NewEngine()
	if err := engine.LoadString(constants.TemplateTokenURL, tokenURLTemplate); err != nil {
		return nil, err
	}
	if err := engine.LoadString(constants.TemplateServiceURL, serviceURLTemplate); err != nil {
		return nil, err
	}

	e := &Endpoints{engine: engine, domain: domain, path: path}

	// Render once so that broken templates fail at construction.
	if _, err := e.TokenURL(constants.RealmAdmin); err != nil {
		return nil, err
	}
	if _, err := e.ServiceURL(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Endpoints) TokenURL(realm string) (string, error) {
	url, err := e.engine.RenderToString(constants.TemplateTokenURL, EndpointVars{
		Domain: e.domain,
		Path:   e.path,
		Realm:  realm,
	})
	if err != nil {
		return "", fmt.Errorf("token url for realm %s: %w", realm, err)
	}
	return url, nil
}

func (e *Endpoints) ServiceURL() (string, error) {
	url, err := e.engine.RenderToString(constants.TemplateServiceURL, EndpointVars{
		Domain: e.domain,
		Path:   e.path,
	})
	if err != nil {
		return "", fmt.Errorf("service url: %w", err)
	}
	return url, nil
}
