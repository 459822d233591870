package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVersionGreaterThan(t *testing.T) {
	tests := []struct {
		version string
		target  string
		want    bool
	}{
		{"0.3.0", "0.2.9", true},
		{"0.3.0", "0.3.0", false},
		{"v1.0.0", "0.9.0", true},
		{"0.3.0-dev", "0.3.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsVersionGreaterThan(tt.version, tt.target), "%s > %s", tt.version, tt.target)
	}
}

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	assert.True(t, IsVersionGreaterOrEqualThan("0.3.0", "0.3.0"))
	assert.True(t, IsVersionGreaterOrEqualThan("0.3.1", "0.3.0"))
	assert.False(t, IsVersionGreaterOrEqualThan("0.2.0", "0.3.0"))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("0.3.0"))
	assert.True(t, IsValid("v0.3.0"))
	assert.False(t, IsValid("latest"))
}

func TestString(t *testing.T) {
	oldCommit, oldBuild := GitCommit, BuildTime
	t.Cleanup(func() { GitCommit, BuildTime = oldCommit, oldBuild })

	GitCommit = "unknown"
	assert.Equal(t, Version, String())

	GitCommit = "0123456789abcdef"
	BuildTime = "2026-01-02T03:04:05Z"
	assert.Equal(t, Version+"-01234567", String())
	assert.Equal(t, "Version="+Version+" Commit=01234567 BuildTime=2026-01-02T03:04:05Z", StringFull())
}

func TestGetCurrentVersion(t *testing.T) {
	assert.Equal(t, DevVersion, GetCurrentVersion("dev"))
	assert.Equal(t, Version, GetCurrentVersion("prod"))
}
