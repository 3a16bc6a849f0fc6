package version

import (
	"strings"
	"testing"
)

func TestShortRevision(t *testing.T) {
	tests := []struct {
		rev   string
		dirty bool
		want  string
	}{
		{"0123456789abcdef", false, "0123456"},
		{"0123456789abcdef", true, "0123456-dirty"},
		{"abc", false, "abc"},
	}
	for _, tt := range tests {
		if got := shortRevision(tt.rev, tt.dirty); got != tt.want {
			t.Errorf("shortRevision(%q, %v) = %v, want %v", tt.rev, tt.dirty, got, tt.want)
		}
	}
}

func TestFull(t *testing.T) {
	if Version == "" || Commit == "" {
		t.Fatal("init should always populate Version and Commit")
	}
	if !strings.Contains(Full(), Commit) {
		t.Errorf("Full() = %v, should contain the commit", Full())
	}
	if info := Get(); info.Version != Version || !strings.Contains(info.Platform, "/") {
		t.Errorf("Get() = %+v", info)
	}
}
