package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	defer func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	}()

	Version = "1.2.3"
	Commit = "abc1234"
	BuildTime = "2024-01-15T10:00:00Z"

	expected := "1.2.3 (abc1234) built 2024-01-15T10:00:00Z"
	if got := String(); got != expected {
		t.Errorf("String() = %q, want %q", got, expected)
	}
}

func TestUserAgent(t *testing.T) {
	origVersion, origCommit := Version, Commit
	defer func() {
		Version, Commit = origVersion, origCommit
	}()

	Version = "0.4.0"
	Commit = "f00dbab"

	got := UserAgent()
	if !strings.HasPrefix(got, "coingecko-ingester/0.4.0") {
		t.Errorf("UserAgent() = %q, want prefix %q", got, "coingecko-ingester/0.4.0")
	}
	if !strings.Contains(got, "f00dbab") {
		t.Errorf("UserAgent() = %q, should contain commit", got)
	}
}

func TestDefaultValues(t *testing.T) {
	// These might be overwritten by ldflags in production builds
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if Commit == "" {
		t.Error("Commit should not be empty")
	}
	if BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
}
