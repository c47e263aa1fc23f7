package taskboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInfo(t *testing.T) {
	assert.Equal(t, "taskboard "+Version+" (schema 1)", VersionInfo())

	orig := BuildInfo
	defer func() { BuildInfo = orig }()

	SetBuildInfo("abc123", "2025-01-02", "")
	full := FullVersionInfo()
	assert.True(t, strings.HasPrefix(full, "taskboard "+Version+"\n"))
	assert.Contains(t, full, "Git Commit: abc123")
	assert.Contains(t, full, "Build Date: 2025-01-02")
	assert.Contains(t, full, "Go Version: "+orig.GoVersion)
}
