package offices

import "testing"

func TestProviderID_Normalization(t *testing.T) {
	a := ProviderID("Acme  Fiber", "IT", "")
	b := ProviderID(" acme fiber ", "it", "")
	if a != b {
		t.Fatalf("ids differ: %q vs %q", a, b)
	}
	if ProviderID("Acme", "IT", "") == ProviderID("Acme", "HR", "") {
		t.Fatalf("same name in different sections must be distinct")
	}
	if ProviderID("Acme", "IT", "") == ProviderID("Acme", "IT", "Fiber") {
		t.Fatalf("description must contribute to the id when present")
	}
}

func TestDisplayName(t *testing.T) {
	if got := NewProvider("Acme", "", "").DisplayName(); got != "Acme" {
		t.Fatalf("display name without description = %q", got)
	}
	if got := NewProvider("Acme", "IT", "Fiber 100").DisplayName(); got != "Acme (Fiber 100)" {
		t.Fatalf("display name with description = %q", got)
	}
}

func TestStoredLabel(t *testing.T) {
	if got := NewProvider("Acme", SectionGeneral, "").StoredLabel(); got != "Acme" {
		t.Fatalf("general stored label = %q", got)
	}
	if got := NewProvider("Globe", "IT", "").StoredLabel(); got != "Globe (IT)" {
		t.Fatalf("sectioned stored label = %q", got)
	}
}

func TestNewProvider_DefaultsSection(t *testing.T) {
	p := NewProvider("Acme", "", "")
	if p.Section != SectionGeneral {
		t.Fatalf("empty section should default to %s, got %q", SectionGeneral, p.Section)
	}
}
