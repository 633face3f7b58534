package extractor

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_InterleavedDiagnostics(t *testing.T) {
	stdout := "" +
		"Release \"fc\" does not exist. Installing it now.\n" +
		"🔹 ingress External-IP: 10.0.0.1\n" +
		"waiting for pods...\n" +
		"🔹 fc-service URL:   https://x\n" +
		"NOTES: something\n" +
		"🔹 Keycloak URL:   https://y\n" +
		"🔹 Client Secret:   abc123\n" +
		"done\n"

	got := Extract(stdout)

	assert.Equal(t, Result{
		IngressExternalIP: "10.0.0.1",
		FCServiceURL:      "https://x",
		KeycloakURL:       "https://y",
		ClientSecret:      "abc123",
	}, got)
}

func TestExtract_OrderIndependent(t *testing.T) {
	stdout := "🔹 Client Secret: s3cr3t\n🔹 ingress External-IP: 1.2.3.4\n"

	got := Extract(stdout)

	assert.Equal(t, "s3cr3t", got.ClientSecret)
	assert.Equal(t, "1.2.3.4", got.IngressExternalIP)
	assert.Empty(t, got.FCServiceURL)
	assert.Empty(t, got.KeycloakURL)
}

func TestExtract_CRLFLineEndings(t *testing.T) {
	got := Extract("🔹 Keycloak URL:\thttps://kc\r\n🔹 fc-service URL: https://fc\r\n")

	assert.Equal(t, "https://kc", got.KeycloakURL)
	assert.Equal(t, "https://fc", got.FCServiceURL)
}

func TestExtract_MarkerMustStartLine(t *testing.T) {
	got := Extract("  🔹 Client Secret: nope\nlog: 🔹 Keycloak URL: https://nope\n")

	assert.True(t, got.IsZero())
}

func TestExtract_EmptyAndMissingValues(t *testing.T) {
	assert.True(t, Extract("").IsZero())
	assert.True(t, Extract("🔹 Client Secret:   \n🔹 ingress External-IP: \n").IsZero())
}

func TestExtract_LaterLineOverwrites(t *testing.T) {
	got := Extract("🔹 Client Secret: first\n🔹 Client Secret: second\n")

	assert.Equal(t, "second", got.ClientSecret)
}

func TestExtractWith_FirstMatchingRuleWins(t *testing.T) {
	rules := []Rule{
		{Label: "broad", Pattern: regexp.MustCompile(`^value: (.+)$`), Set: func(r *Result, v string) { r.KeycloakURL = v }},
		{Label: "narrow", Pattern: regexp.MustCompile(`^value: (x.*)$`), Set: func(r *Result, v string) { r.ClientSecret = v }},
	}

	got := ExtractWith(rules, "value: xyz")

	assert.Equal(t, "xyz", got.KeycloakURL)
	assert.Empty(t, got.ClientSecret)
}
