// Package extractor pulls connection metadata out of provisioning script
// output.
package extractor

import (
	"regexp"
	"strings"
)

// Result is the connection metadata of one deployed instance. Fields whose
// marker never appeared stay empty.
type Result struct {
	IngressExternalIP string `json:"ingressExternalIp" yaml:"ingressExternalIp"`
	FCServiceURL      string `json:"fcServiceUrl" yaml:"fcServiceUrl"`
	KeycloakURL       string `json:"keycloakUrl" yaml:"keycloakUrl"`
	ClientSecret      string `json:"clientSecret" yaml:"clientSecret"`
}

// IsZero reports whether no field was extracted.
func (r Result) IsZero() bool {
	return r == Result{}
}

// Rule binds a labeled output marker to the result field it fills.
type Rule struct {
	Label   string
	Pattern *regexp.Regexp
	Set     func(r *Result, value string)
}

// Rules is the marker vocabulary of the provisioning scripts, evaluated in
// order. The first rule matching a line wins.
var Rules = []Rule{
	{
		Label:   "ingress external ip",
		Pattern: regexp.MustCompile(`^🔹 ingress External-IP: (.+)$`),
		Set:     func(r *Result, v string) { r.IngressExternalIP = v },
	},
	{
		Label:   "fc-service url",
		Pattern: regexp.MustCompile(`^🔹 fc-service URL:\s+(.+)$`),
		Set:     func(r *Result, v string) { r.FCServiceURL = v },
	},
	{
		Label:   "keycloak url",
		Pattern: regexp.MustCompile(`^🔹 Keycloak URL:\s+(.+)$`),
		Set:     func(r *Result, v string) { r.KeycloakURL = v },
	},
	{
		Label:   "client secret",
		Pattern: regexp.MustCompile(`^🔹 Client Secret:\s+(.+)$`),
		Set:     func(r *Result, v string) { r.ClientSecret = v },
	},
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// Extract scans stdout line by line against Rules. Unrecognized lines are
// ignored; a later line for the same field replaces an earlier value.
func Extract(stdout string) Result {
	return ExtractWith(Rules, stdout)
}

func ExtractWith(rules []Rule, stdout string) Result {
	var res Result

	for _, line := range lineBreak.Split(stdout, -1) {
		line = strings.TrimSuffix(line, "\r")
		for _, rule := range rules {
			if m := rule.Pattern.FindStringSubmatch(line); m != nil {
				if v := strings.TrimSpace(m[1]); v != "" {
					rule.Set(&res, v)
				}
				break
			}
		}
	}

	return res
}
