package slack

import "testing"

func TestTransport_SupportsContact(t *testing.T) {
	tr := New()
	if !tr.SupportsContact("slack") {
		t.Error("expected slack contacts to be supported")
	}
	if tr.SupportsContact("email") {
		t.Error("did not expect email contacts to be supported")
	}
}

func TestTransport_ClientCaching(t *testing.T) {
	tr := New()
	a := tr.clientFor("token-1")
	b := tr.clientFor("token-1")
	if a != b {
		t.Error("expected clientFor to cache clients per token")
	}
}
