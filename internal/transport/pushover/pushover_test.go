package pushover

import "testing"

func TestTransport_SupportsContact(t *testing.T) {
	tr := New()
	if !tr.SupportsContact("pushover") {
		t.Error("expected pushover contacts to be supported")
	}
	if tr.SupportsContact("email") {
		t.Error("did not expect email contacts to be supported")
	}
}

func TestTransport_Name(t *testing.T) {
	if New().Name() != "pushover" {
		t.Errorf("Name() = %q, want pushover", New().Name())
	}
}
