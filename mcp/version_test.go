package mcp

import "testing"

func TestNegotiateServerVersionEchoesSupported(t *testing.T) {
	got := NegotiateServerVersion(Version20241105, []string{VersionDraft, Version20250326, Version20241105})
	if got != Version20241105 {
		t.Fatalf("expected echoed version %q, got %q", Version20241105, got)
	}
}

func TestNegotiateServerVersionFallsBackToNewestSupported(t *testing.T) {
	got := NegotiateServerVersion("bogus-version", []string{Version20241105})
	if got != Version20241105 {
		t.Fatalf("expected fallback to %q, got %q", Version20241105, got)
	}
}

func TestAcceptClientVersionRejectsUnsupported(t *testing.T) {
	if AcceptClientVersion("bogus-version", SupportedVersions) {
		t.Fatal("expected unsupported version to be rejected")
	}
	if !AcceptClientVersion(Version20241105, SupportedVersions) {
		t.Fatal("expected a known version to be accepted")
	}
}

func TestNormalizeClientCapabilitiesEmptyElicitationMeansForm(t *testing.T) {
	caps := ClientCapabilities{Elicitation: &ElicitationCapability{}}
	got := NormalizeClientCapabilities(caps)
	if got.Elicitation.Form == nil {
		t.Fatal("expected empty elicitation object to normalize to form-mode support")
	}
	if got.Elicitation.URL != nil {
		t.Fatal("normalization must not also inject url support")
	}
}

func TestNormalizeClientCapabilitiesExplicitURLSuppressesInjection(t *testing.T) {
	caps := ClientCapabilities{Elicitation: &ElicitationCapability{URL: &struct{}{}}}
	got := NormalizeClientCapabilities(caps)
	if got.Elicitation.Form != nil {
		t.Fatal("an explicit url member must suppress the form back-compat injection")
	}
}

func TestNormalizeClientCapabilitiesNilIsUntouched(t *testing.T) {
	caps := ClientCapabilities{}
	got := NormalizeClientCapabilities(caps)
	if got.Elicitation != nil {
		t.Fatal("a client that declared no elicitation capability at all must not gain one")
	}
}
