package config

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_Load_Returns_Default_When_No_Config_File_Present(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, loadedFrom, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loadedFrom != "" {
		t.Fatalf("loadedFrom = %q, want empty (no config file present)", loadedFrom)
	}

	want := Default()
	want.BackingFileAbs = filepath.Join(dir, want.BackingFile)

	if cfg != want {
		t.Fatalf("cfg = %+v, want %+v", cfg, want)
	}
}

func Test_Load_Merges_Project_Config_File_Over_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	jsonc := `{
		// trailing comma and comment support via hujson
		"backing_file": "custom.db",
		"managed": true,
	}`

	if err := os.WriteFile(path, []byte(jsonc), 0o644); err != nil {
		t.Fatalf("writing config file failed: %v", err)
	}

	cfg, loadedFrom, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loadedFrom != path {
		t.Fatalf("loadedFrom = %q, want %q", loadedFrom, path)
	}

	if cfg.BackingFile != "custom.db" {
		t.Fatalf("BackingFile = %q, want %q", cfg.BackingFile, "custom.db")
	}

	if !cfg.Managed {
		t.Fatalf("Managed = false, want true")
	}

	if cfg.IDRangeLo != Default().IDRangeLo {
		t.Fatalf("IDRangeLo = %d, want the default %d (not overridden)", cfg.IDRangeLo, Default().IDRangeLo)
	}
}

func Test_Load_Returns_Error_When_Explicit_Config_Path_Missing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, err := Load(dir, "does-not-exist.jsonc")
	if err == nil {
		t.Fatalf("expected an error for a missing explicit config file")
	}
}

func Test_Load_Rejects_Invalid_Range(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	jsonc := `{"backing_file": "x.db", "id_range_lo": 100, "id_range_hi": 50}`
	if err := os.WriteFile(path, []byte(jsonc), 0o644); err != nil {
		t.Fatalf("writing config file failed: %v", err)
	}

	if _, _, err := Load(dir, ""); err == nil {
		t.Fatalf("expected an error for id_range_hi < id_range_lo")
	}
}

func Test_Format_Produces_Valid_Indented_JSON(t *testing.T) {
	t.Parallel()

	out, err := Format(Default())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	if out == "" {
		t.Fatalf("Format returned empty output")
	}
}
