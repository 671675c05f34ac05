package anchorcli

import (
	"context"
	"fmt"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/anchorstore/config"
	"github.com/calvinalkan/anchorstore/internal/demoanchor"
	"github.com/calvinalkan/anchorstore/internal/fs"
	"github.com/calvinalkan/anchorstore/memory"
	"github.com/calvinalkan/anchorstore/store"
)

var codec = store.GobCodec[demoanchor.Anchor]{}

// openOrCreate opens cfg.BackingFile, creating and initializing a fresh
// store if it doesn't exist yet.
func openOrCreate(cfg config.Config) (*store.Storage[demoanchor.Anchor], func() error, error) {
	real := fs.NewReal()

	backing, err := memory.OpenFileMemory(real, cfg.BackingFileAbs)
	if err != nil {
		return nil, nil, fmt.Errorf("opening backing file: %w", err)
	}

	if s, ok := store.FromMemory[demoanchor.Anchor](backing, codec); ok {
		return s, backing.Close, nil
	}

	mode := store.LayoutFlat
	if cfg.Managed {
		mode = store.LayoutManaged
	}

	s := store.New(cfg.IDRangeLo, cfg.IDRangeHi, mode, backing, codec)

	return s, backing.Close, nil
}

// InfoCmd reports header fields for an existing store.
func InfoCmd(cfg config.Config) *Command {
	flags := flag.NewFlagSet("info", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "info",
		Short: "Show store header fields",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			s, closeFn, err := openOrCreate(cfg)
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck // best-effort cleanup after a read-only command

			lo, hi := s.AssignedRange()
			_, hasSalt := s.Salt()

			o.Printf("version:      %d\n", s.Version())
			o.Printf("id range:     [%d, %d)\n", lo, hi)
			o.Printf("num anchors:  %d\n", s.AnchorCount())
			o.Printf("max entries:  %d\n", s.MaxEntries())
			o.Printf("salt set:     %v\n", hasSalt)

			return nil
		},
	}
}

// AllocCmd allocates the next anchor number in the store's range.
func AllocCmd(cfg config.Config) *Command {
	flags := flag.NewFlagSet("alloc", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "alloc",
		Short: "Allocate the next anchor number",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			s, closeFn, err := openOrCreate(cfg)
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck // store writes are already durable before this point

			n, _, ok := s.AllocateAnchor()
			if !ok {
				o.Warn("anchor-number range exhausted")
				return nil
			}

			o.Printf("allocated anchor %d\n", n)

			return nil
		},
	}
}

// WriteCmd writes a label and device list to an already-allocated anchor.
func WriteCmd(cfg config.Config) *Command {
	flags := flag.NewFlagSet("write", flag.ContinueOnError)
	label := flags.StringP("label", "l", "", "anchor label")

	return &Command{
		Flags: flags,
		Usage: "write <anchor-number> [devices...]",
		Short: "Write an anchor's payload",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("missing anchor number")
			}

			n, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid anchor number %q: %w", args[0], err)
			}

			s, closeFn, err := openOrCreate(cfg)
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck // store writes are already durable before this point

			anchor := demoanchor.New(*label)
			anchor.Devices = args[1:]

			if err := s.Write(n, anchor); err != nil {
				return fmt.Errorf("writing anchor %d: %w", n, err)
			}

			o.Printf("wrote anchor %d\n", n)

			return nil
		},
	}
}

// ReadCmd reads back an anchor's payload.
func ReadCmd(cfg config.Config) *Command {
	flags := flag.NewFlagSet("read", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "read <anchor-number>",
		Short: "Read an anchor's payload",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("missing anchor number")
			}

			n, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid anchor number %q: %w", args[0], err)
			}

			s, closeFn, err := openOrCreate(cfg)
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck // best-effort cleanup after a read-only command

			anchor, err := s.Read(n)
			if err != nil {
				return fmt.Errorf("reading anchor %d: %w", n, err)
			}

			o.Printf("label:   %s\n", anchor.Label)
			o.Printf("devices: %v\n", anchor.Devices)

			return nil
		},
	}
}

// MigrateCmd performs the one-time v6->v7 layout migration.
func MigrateCmd(cfg config.Config) *Command {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "migrate",
		Short: "Migrate a flat-layout store to the managed layout",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			real := fs.NewReal()

			backing, err := memory.OpenFileMemory(real, cfg.BackingFileAbs)
			if err != nil {
				return fmt.Errorf("opening backing file: %w", err)
			}
			defer backing.Close() //nolint:errcheck // migration itself already flushed everything it wrote

			if err := store.MigrateV6ToV7(backing); err != nil {
				return fmt.Errorf("migrating: %w", err)
			}

			o.Println("migrated to layout version 7")

			return nil
		},
	}
}

// BackupCmd durably copies the backing file to a second path, so an
// operator can snapshot a store before a risky migration.
func BackupCmd(cfg config.Config) *Command {
	flags := flag.NewFlagSet("backup", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "backup <dest-path>",
		Short: "Snapshot the backing file to dest-path",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("missing destination path")
			}

			real := fs.NewReal()

			backing, err := memory.OpenFileMemory(real, cfg.BackingFileAbs)
			if err != nil {
				return fmt.Errorf("opening backing file: %w", err)
			}
			defer backing.Close() //nolint:errcheck // read-only for the purposes of this command

			if err := backing.Snapshot(args[0]); err != nil {
				return fmt.Errorf("snapshotting to %s: %w", args[0], err)
			}

			o.Printf("backed up to %s\n", args[0])

			return nil
		},
	}
}

// ConfigCmd prints the effective configuration as JSON.
func ConfigCmd(cfg config.Config) *Command {
	flags := flag.NewFlagSet("config", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "config",
		Short: "Print the effective configuration",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			formatted, err := config.Format(cfg)
			if err != nil {
				return err
			}

			o.Println(formatted)

			return nil
		},
	}
}
