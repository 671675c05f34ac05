package anchorcli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/anchorstore/internal/anchorcli"
)

func Test_Info_Reports_Fresh_Store_Defaults(t *testing.T) {
	t.Parallel()

	c := anchorcli.NewCLI(t)
	stdout := c.MustRun("info")

	anchorcli.AssertContains(t, stdout, "num anchors:  0")
	anchorcli.AssertContains(t, stdout, "salt set:     false")
}

func Test_Alloc_Then_Write_Then_Read_RoundTrips(t *testing.T) {
	t.Parallel()

	c := anchorcli.NewCLI(t)

	allocOut := c.MustRun("alloc")
	anchorcli.AssertContains(t, allocOut, "allocated anchor")

	writeOut := c.MustRun("write", "--label", "alice", "10000", "phone", "laptop")
	anchorcli.AssertContains(t, writeOut, "wrote anchor 10000")

	readOut := c.MustRun("read", "10000")
	anchorcli.AssertContains(t, readOut, "label:   alice")
	anchorcli.AssertContains(t, readOut, "[phone laptop]")
}

func Test_Read_Fails_For_Unallocated_Anchor(t *testing.T) {
	t.Parallel()

	c := anchorcli.NewCLI(t)

	stderr := c.MustFail("read", "99999")
	anchorcli.AssertContains(t, stderr, "error:")
}

func Test_Migrate_Upgrades_Flat_Store_To_Managed(t *testing.T) {
	t.Parallel()

	c := anchorcli.NewCLI(t)

	c.MustRun("alloc")

	infoBefore := c.MustRun("info")
	anchorcli.AssertContains(t, infoBefore, "version:      6")

	migrateOut := c.MustRun("migrate")
	anchorcli.AssertContains(t, migrateOut, "migrated to layout version 7")

	infoAfter := c.MustRun("info")
	anchorcli.AssertContains(t, infoAfter, "version:      7")
	anchorcli.AssertContains(t, infoAfter, "num anchors:  1")
}

func Test_Config_Command_Uses_Project_Config_File(t *testing.T) {
	t.Parallel()

	c := anchorcli.NewCLI(t)

	jsonc := `{"backing_file": "custom.db", "managed": true}`
	if err := os.WriteFile(filepath.Join(c.Dir, ".anchorctl.jsonc"), []byte(jsonc), 0o644); err != nil {
		t.Fatalf("writing config file failed: %v", err)
	}

	stdout := c.MustRun("config")
	anchorcli.AssertContains(t, stdout, `"backing_file": "custom.db"`)
	anchorcli.AssertContains(t, stdout, `"managed": true`)

	c.MustRun("alloc")

	info := c.MustRun("info")
	anchorcli.AssertContains(t, info, "version:      7")

	if _, err := os.Stat(filepath.Join(c.Dir, "custom.db")); err != nil {
		t.Fatalf("expected custom.db to be created, stat failed: %v", err)
	}
}

func Test_Backup_Copies_Backing_File_To_Dest_Path(t *testing.T) {
	t.Parallel()

	c := anchorcli.NewCLI(t)
	c.MustRun("alloc")

	dest := filepath.Join(c.Dir, "anchors.bak")
	stdout := c.MustRun("backup", dest)
	anchorcli.AssertContains(t, stdout, "backed up to")

	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected backup file to exist, stat failed: %v", err)
	}
}

func Test_Help_Lists_All_Commands(t *testing.T) {
	t.Parallel()

	c := anchorcli.NewCLI(t)
	stdout := c.MustRun("--help")

	for _, name := range []string{"info", "alloc", "write", "read", "migrate", "backup", "config"} {
		anchorcli.AssertContains(t, stdout, name)
	}
}
