package registry

import (
	"reflect"
	"testing"

	"github.com/drewdunne/scmpoll/internal/config"
)

func TestRegistry_Get(t *testing.T) {
	reg := Default()

	tests := []struct {
		name     string
		pluginID string
	}{
		{"git", "git.fb"},
		{"github", "github.pr"},
		{"gitlab", "gitlab.mr"},
		{"bitbucket", "bitbucketprb.pr"},
		{"stash", "stash.pr"},
		{"gerrit", "gerrit.cs"},
	}

	for _, tt := range tests {
		p := reg.Get(tt.name)
		if p == nil {
			t.Fatalf("Get(%s) returned nil", tt.name)
		}
		if p.Name() != tt.name {
			t.Errorf("provider name = %q, want %q", p.Name(), tt.name)
		}
		if p.PluginID() != tt.pluginID {
			t.Errorf("%s plugin id = %q, want %q", tt.name, p.PluginID(), tt.pluginID)
		}
	}

	if reg.Get("unknown") != nil {
		t.Error("Get(unknown) should return nil")
	}
}

func TestRegistry_List(t *testing.T) {
	want := []string{"bitbucket", "gerrit", "git", "github", "gitlab", "stash"}
	if got := Default().List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Provider.Name = "gitlab"

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Name() != "gitlab" {
		t.Errorf("Name() = %q, want gitlab", p.Name())
	}

	cfg.Provider.Name = "svn"
	if _, err := New(cfg); err == nil {
		t.Error("New() expected error for unknown provider")
	}
}
