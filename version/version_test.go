package version

import (
	"runtime/debug"
	"testing"
)

func stub(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	origRead, origVersion, origCommit, origBuildTime := readBuildInfo, Version, GitCommit, BuildTime
	t.Cleanup(func() {
		readBuildInfo, Version, GitCommit, BuildTime = origRead, origVersion, origCommit, origBuildTime
	})
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	Version, GitCommit, BuildTime = "dev", "", ""
}

func TestGet_NoBuildInfo(t *testing.T) {
	stub(t, nil)
	info := Get()
	if info.Version != "dev" {
		t.Errorf("expected dev, got %q", info.Version)
	}
	if info.String() != "dev" {
		t.Errorf("expected plain version string, got %q", info.String())
	}
}

func TestGet_LdflagsWin(t *testing.T) {
	stub(t, &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Path: ModulePath, Version: "v0.9.0"},
	})
	Version = "1.0.0"
	if got := Get().Version; got != "1.0.0" {
		t.Errorf("expected ldflags version, got %q", got)
	}
}

func TestGet_ModuleVersion(t *testing.T) {
	tests := []struct {
		name string
		bi   *debug.BuildInfo
		want string
	}{
		{
			name: "main module",
			bi:   &debug.BuildInfo{Main: debug.Module{Path: ModulePath, Version: "v1.4.0"}},
			want: "1.4.0",
		},
		{
			name: "dependency",
			bi: &debug.BuildInfo{
				Main: debug.Module{Path: "example.com/app", Version: "(devel)"},
				Deps: []*debug.Module{{Path: ModulePath, Version: "v1.2.3"}},
			},
			want: "1.2.3",
		},
		{
			name: "replaced dependency",
			bi: &debug.BuildInfo{
				Main: debug.Module{Path: "example.com/app"},
				Deps: []*debug.Module{{Path: ModulePath, Version: "v1.2.3", Replace: &debug.Module{Version: "v1.2.4"}}},
			},
			want: "1.2.4",
		},
		{
			name: "devel main module",
			bi:   &debug.BuildInfo{Main: debug.Module{Path: ModulePath, Version: "(devel)"}},
			want: "dev",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub(t, tt.bi)
			if got := ProductVersion(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGet_VCSSettings(t *testing.T) {
	stub(t, &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc1234def5678"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})
	info := Get()
	if info.GitCommit != "abc1234" {
		t.Errorf("expected short commit, got %q", info.GitCommit)
	}
	if info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Errorf("expected vcs time, got %q", info.BuildTime)
	}
	if got := info.String(); got != "dev (abc1234-dirty, go1.26.0)" {
		t.Errorf("unexpected string %q", got)
	}
}
