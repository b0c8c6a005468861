package main

import "testing"

func TestGetConfigPath(t *testing.T) {
	t.Run("default when unset", func(t *testing.T) {
		t.Setenv("EGGCOOP_CONFIG", "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("EGGCOOP_CONFIG", "/etc/eggcoop/config.yaml")
		if got := getConfigPath(); got != "/etc/eggcoop/config.yaml" {
			t.Errorf("getConfigPath() = %q, want override", got)
		}
	})
}
