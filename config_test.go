package liftline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	conf := `[general]
output_path = "/tmp/wakes"

[log]
level = "debug"

[export]
format = "obj"

[metrics]
enabled = true
`
	if err := os.WriteFile(filepath.Join(dir, "conf.toml"), []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := loadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c.outputDir != "/tmp/wakes" || c.logLevel != "debug" || c.exportFormat != OBJFormat || !c.metricsEnabled {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.storePath != "liftline.db" {
		t.Fatalf("store path default %s", c.storePath)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := loadConfig(t.TempDir()); err == nil {
		t.Fatal("expected an error without conf.toml")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "conf.toml"), []byte("[export]\nformat = \"stl\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(dir); err == nil {
		t.Fatal("expected an error on an unknown export format")
	}
}

func TestLevelOption(t *testing.T) {
	for _, name := range []string{"debug", "info", "warn", "error", "none", "verbose"} {
		if levelOption(name) == nil {
			t.Fatalf("no option for %s", name)
		}
	}
}
