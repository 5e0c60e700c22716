package adapter

import (
	"testing"

	"github.com/listforge/listforge/internal/model"
)

func TestResolve_PicksAdapterBySource(t *testing.T) {
	cases := []struct {
		name string
		cfg  model.UpdateConfig
		want string
	}{
		{"url", model.UpdateConfig{Source: model.SourceURL}, "*adapter.URLAdapter"},
		{"curl", model.UpdateConfig{Source: model.SourceCurl}, "*adapter.ShellAdapter"},
		{"script", model.UpdateConfig{Source: model.SourceScript}, "*adapter.ScriptAdapter"},
		{"api+curl alias", model.UpdateConfig{Source: model.SourceAPI, APIType: model.APITypeCurl}, "*adapter.ShellAdapter"},
		{"api+script alias", model.UpdateConfig{Source: model.SourceAPI, APIType: model.APITypeScript}, "*adapter.ScriptAdapter"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Resolve(tc.cfg, nil)
			got := typeName(a)
			if got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func typeName(a Adapter) string {
	switch a.(type) {
	case *URLAdapter:
		return "*adapter.URLAdapter"
	case *ShellAdapter:
		return "*adapter.ShellAdapter"
	case *ScriptAdapter:
		return "*adapter.ScriptAdapter"
	default:
		return "unknown"
	}
}
