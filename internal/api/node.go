package api

import (
	"encoding/json"
	"time"
)

// InputRequest is an input message posted to a node. A non-blank topic asks
// for a service call, anything else for a deploy.
type InputRequest struct {
	Topic        string          `json:"topic,omitempty"`
	Method       string          `json:"method,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ClientSecret string          `json:"clientSecret,omitempty"`
	Username     string          `json:"username,omitempty"`
	Password     string          `json:"password,omitempty"`
}

// InfoResponse is the connection metadata of a deployed catalogue. Unset
// fields are empty strings.
type InfoResponse struct {
	IngressExternalIP string `json:"ingressExternalIp" yaml:"ingressExternalIp"`
	FCServiceURL      string `json:"fcServiceUrl" yaml:"fcServiceUrl"`
	KeycloakURL       string `json:"keycloakUrl" yaml:"keycloakUrl"`
	ClientSecret      string `json:"clientSecret" yaml:"clientSecret"`
}

// ErrorResponse is the body of a failed info lookup.
type ErrorResponse struct {
	Error string `json:"error"`
}

type NodeStatus struct {
	ID                   string       `json:"id" yaml:"id"`
	Name                 string       `json:"name,omitempty" yaml:"name,omitempty"`
	Kind                 string       `json:"kind" yaml:"kind"`
	Phase                string       `json:"phase" yaml:"phase"`
	SupportsServiceCalls bool         `json:"supportsServiceCalls" yaml:"supportsServiceCalls"`
	Result               InfoResponse `json:"result" yaml:"result"`
	LastError            string       `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	UpdatedAt            time.Time    `json:"updatedAt" yaml:"updatedAt"`
}

// ServiceResponse is the pass-through answer of the deployed service.
type ServiceResponse struct {
	StatusCode int `json:"statusCode" yaml:"statusCode"`
	Body       any `json:"body" yaml:"body"`
}

// OutputResponse is what a node emitted for one input.
type OutputResponse struct {
	Topic    string           `json:"topic,omitempty" yaml:"topic,omitempty"`
	Payload  any              `json:"payload,omitempty" yaml:"payload,omitempty"`
	Response *ServiceResponse `json:"response,omitempty" yaml:"response,omitempty"`
}
