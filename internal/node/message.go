package node

import (
	"encoding/json"
	"strings"

	"github.com/terabiome/stackbuilder/internal/proxy"
)

// Message is an input delivered to a node. A non-blank Topic requests a
// service call, anything else requests a deploy.
type Message struct {
	Topic   string          `json:"topic,omitempty" yaml:"topic,omitempty"`
	Method  string          `json:"method,omitempty" yaml:"method,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty" yaml:"-"`

	ClientSecret string `json:"clientSecret,omitempty" yaml:"-"`
	Username     string `json:"username,omitempty" yaml:"username,omitempty"`
	Password     string `json:"password,omitempty" yaml:"-"`
}

// IsServiceCall reports whether the message carries a topic.
func (m Message) IsServiceCall() bool {
	return strings.TrimSpace(m.Topic) != ""
}

// Output is what a node emits for one message. Payload holds the deploy
// result, the failure text or the passed-through input payload. Response is
// set for service calls.
type Output struct {
	Topic    string          `json:"topic,omitempty" yaml:"topic,omitempty"`
	Payload  any             `json:"payload,omitempty" yaml:"payload,omitempty"`
	Response *proxy.Response `json:"response,omitempty" yaml:"response,omitempty"`
}
