package ntfy

import "testing"

func TestTopicURL_BareName(t *testing.T) {
	if got := topicURL("alerts"); got != "https://ntfy.sh/alerts" {
		t.Errorf("topicURL(alerts) = %q", got)
	}
}

func TestTopicURL_AbsoluteURL(t *testing.T) {
	u := "https://ntfy.example.com/alerts"
	if got := topicURL(u); got != u {
		t.Errorf("topicURL(%q) = %q, want unchanged", u, got)
	}
}
