// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, settings ...debug.BuildSetting) {
	t.Helper()
	original := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: settings}, true
	}
	t.Cleanup(func() { readBuildInfo = original })
}

func withCommit(t *testing.T, commit, dirty string) {
	t.Helper()
	originalCommit, originalDirty := GitCommit, GitDirty
	GitCommit, GitDirty = commit, dirty
	t.Cleanup(func() { GitCommit, GitDirty = originalCommit, originalDirty })
}

func TestCommitPrefersInjectedValue(t *testing.T) {
	withCommit(t, "abc1234", "false")
	withBuildInfo(t, debug.BuildSetting{Key: "vcs.revision", Value: "ffffffffffffffff"})

	if got := Commit(); got != "abc1234" {
		t.Errorf("Commit() = %q, want abc1234", got)
	}
}

func TestCommitFallsBackToBuildInfo(t *testing.T) {
	withCommit(t, "unknown", "false")
	withBuildInfo(t, debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"})

	if got := Commit(); got != "0123456" {
		t.Errorf("Commit() = %q, want 0123456", got)
	}
}

func TestCommitUnknownWithoutVCS(t *testing.T) {
	withCommit(t, "unknown", "false")
	withBuildInfo(t)

	if got := Commit(); got != "unknown" {
		t.Errorf("Commit() = %q, want unknown", got)
	}
}

func TestInfoMarksDirtyBuilds(t *testing.T) {
	withCommit(t, "abc1234", "true")
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want dirty marker", got)
	}

	withCommit(t, "unknown", "false")
	withBuildInfo(t,
		debug.BuildSetting{Key: "vcs.revision", Value: "0123456789"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
	)
	if got := Info(); !strings.Contains(got, "0123456-dirty") {
		t.Errorf("Info() = %q, want dirty marker from build info", got)
	}
}

func TestFullIncludesGoVersion(t *testing.T) {
	if got := Full(); !strings.Contains(got, "Go: go") || !strings.HasPrefix(got, Short()) {
		t.Errorf("Full() = %q", got)
	}
}
