package build

import "testing"

func TestIsCompatiblePeerVersion(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"1.0.0", true},
		{"1.2.3", true},
		{"0.9.9", false},
		{"not-a-version", false},
	}
	for _, c := range cases {
		if got := IsCompatiblePeerVersion(c.raw); got != c.want {
			t.Errorf("IsCompatiblePeerVersion(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}
