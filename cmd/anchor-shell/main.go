// anchor-shell is an interactive REPL for exploring an anchor store.
//
// Usage:
//
//	anchor-shell <backing-file>              Open an existing store
//	anchor-shell new [opts] <backing-file>    Create a new store
//
// Options for 'new':
//
//	-l, --lo         Low end of the anchor-number range (inclusive)
//	-i, --hi         High end of the anchor-number range (exclusive)
//	-m, --managed    Use the managed (v7) layout instead of flat (v6)
//
// Commands (in REPL):
//
//	alloc                          Allocate the next anchor number
//	write <n> <label> [devices...] Write an anchor's payload
//	read <n>                       Read an anchor's payload
//	salt [hex]                     Show or set the device-encryption salt
//	range                          Show the assigned anchor-number range
//	count                          Show the number of allocated anchors
//	version                        Show the on-disk layout version
//	migrate                        Not available in the shell; use 'anchorctl migrate'
//	info                           Show all header fields at once
//	help                           Show this help
//	exit / quit / q                Exit
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/anchorstore/internal/demoanchor"
	"github.com/calvinalkan/anchorstore/internal/fs"
	"github.com/calvinalkan/anchorstore/memory"
	"github.com/calvinalkan/anchorstore/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return errors.New("missing command or backing-file path")
	}

	if os.Args[1] == "new" {
		return runNew(os.Args[2:])
	}

	return runOpen(os.Args[1:])
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  anchor-shell <backing-file>              Open an existing store")
	fmt.Fprintln(os.Stderr, "  anchor-shell new [opts] <backing-file>   Create a new store")
	fmt.Fprintln(os.Stderr, "\nRun 'anchor-shell new --help' for options.")
}

func runNew(args []string) error {
	var lo, hi uint64
	var managed bool
	var rest []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-l", "--lo":
			i++
			v, err := strconv.ParseUint(args[i], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid --lo: %w", err)
			}
			lo = v
		case "-i", "--hi":
			i++
			v, err := strconv.ParseUint(args[i], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid --hi: %w", err)
			}
			hi = v
		case "-m", "--managed":
			managed = true
		case "-h", "--help":
			fmt.Println("Options for 'new':")
			fmt.Println("  -l, --lo         Low end of the anchor-number range (inclusive)")
			fmt.Println("  -i, --hi         High end of the anchor-number range (exclusive)")
			fmt.Println("  -m, --managed    Use the managed (v7) layout instead of flat (v6)")

			return nil
		default:
			rest = append(rest, args[i])
		}
	}

	if len(rest) < 1 {
		return errors.New("missing backing-file path")
	}

	path := rest[0]

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("backing file already exists: %s (use 'anchor-shell %s' to open it)", path, path)
	}

	if hi == 0 {
		hi = lo + 100_000
	}

	real := fs.NewReal()

	backing, err := memory.OpenFileMemory(real, path)
	if err != nil {
		return fmt.Errorf("creating backing file: %w", err)
	}

	mode := store.LayoutFlat
	if managed {
		mode = store.LayoutManaged
	}

	s := store.New(lo, hi, mode, backing, store.GobCodec[demoanchor.Anchor]{})

	fmt.Printf("Created store with id range [%d, %d), layout=%d\n", lo, hi, s.Version())

	repl := &REPL{store: s, close: backing.Close}

	return repl.Run()
}

func runOpen(args []string) error {
	if len(args) < 1 {
		return errors.New("missing backing-file path")
	}

	path := args[0]

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("backing file does not exist: %s (use 'anchor-shell new %s' to create it)", path, path)
	}

	real := fs.NewReal()

	backing, err := memory.OpenFileMemory(real, path)
	if err != nil {
		return fmt.Errorf("opening backing file: %w", err)
	}

	s, ok := store.FromMemory[demoanchor.Anchor](backing, store.GobCodec[demoanchor.Anchor]{})
	if !ok {
		_ = backing.Close()
		return fmt.Errorf("%s does not hold a recognizable anchor store", path)
	}

	repl := &REPL{store: s, close: backing.Close}

	return repl.Run()
}

// REPL is the interactive command loop over an open store.
type REPL struct {
	store *store.Storage[demoanchor.Anchor]
	close func() error
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".anchor_shell_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	defer r.close() //nolint:errcheck // best-effort close on REPL exit

	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f) //nolint:errcheck // a broken history file is not fatal
		f.Close()
	}

	fmt.Println("anchor-shell - anchor store REPL")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("anchor> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()

			return nil
		case "help", "?":
			r.printHelp()
		case "alloc":
			r.cmdAlloc()
		case "write":
			r.cmdWrite(args)
		case "read":
			r.cmdRead(args)
		case "salt":
			r.cmdSalt(args)
		case "range":
			r.cmdRange()
		case "count":
			r.cmdCount()
		case "version":
			fmt.Printf("layout version: %d\n", r.store.Version())
		case "migrate":
			r.cmdMigrate()
		case "info":
			r.cmdInfo()
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil { //nolint:gosec // history file path is derived from the user's own home dir
			r.liner.WriteHistory(f) //nolint:errcheck // best-effort history persistence
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"alloc", "write", "read", "salt", "range", "count",
		"version", "migrate", "info", "help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  alloc                          Allocate the next anchor number")
	fmt.Println("  write <n> <label> [devices...] Write an anchor's payload")
	fmt.Println("  read <n>                       Read an anchor's payload")
	fmt.Println("  salt [hex]                     Show or set the device-encryption salt")
	fmt.Println("  range                          Show the assigned anchor-number range")
	fmt.Println("  count                          Show the number of allocated anchors")
	fmt.Println("  version                        Show the on-disk layout version")
	fmt.Println("  migrate                        Not available in the shell; use 'anchorctl migrate'")
	fmt.Println("  info                           Show all header fields at once")
	fmt.Println("  help                           Show this help")
	fmt.Println("  exit / quit / q                Exit")
}

func (r *REPL) cmdAlloc() {
	n, _, ok := r.store.AllocateAnchor()
	if !ok {
		fmt.Println("anchor-number range exhausted")
		return
	}

	fmt.Printf("allocated anchor %d\n", n)
}

func (r *REPL) cmdWrite(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: write <n> <label> [devices...]")
		return
	}

	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Error parsing anchor number: %v\n", err)
		return
	}

	anchor := demoanchor.New(args[1])
	anchor.Devices = args[2:]

	if err := r.store.Write(n, anchor); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("OK: wrote anchor %d\n", n)
}

func (r *REPL) cmdRead(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: read <n>")
		return
	}

	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Error parsing anchor number: %v\n", err)
		return
	}

	anchor, err := r.store.Read(n)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Label:   %s\n", anchor.Label)
	fmt.Printf("Devices: %v\n", anchor.Devices)
}

func (r *REPL) cmdSalt(args []string) {
	if len(args) < 1 {
		salt, ok := r.store.Salt()
		if !ok {
			fmt.Println("(not set)")
			return
		}

		fmt.Printf("%x\n", salt)

		return
	}

	raw, err := parseHex32(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	r.store.UpdateSalt(raw)
	fmt.Println("OK: salt updated")
}

func parseHex32(s string) (store.Salt, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return store.Salt{}, fmt.Errorf("invalid hex: %w", err)
	}

	if len(raw) != 32 {
		return store.Salt{}, fmt.Errorf("expected 32 bytes (64 hex characters), got %d", len(raw))
	}

	var salt store.Salt
	copy(salt[:], raw)

	return salt, nil
}

func (r *REPL) cmdRange() {
	lo, hi := r.store.AssignedRange()
	fmt.Printf("[%d, %d)\n", lo, hi)
}

func (r *REPL) cmdCount() {
	fmt.Printf("%d\n", r.store.AnchorCount())
}

func (r *REPL) cmdMigrate() {
	fmt.Println("Error: run migrations through anchorctl (the store must not be open elsewhere during migration)")
}

func (r *REPL) cmdInfo() {
	lo, hi := r.store.AssignedRange()
	_, hasSalt := r.store.Salt()

	fmt.Printf("version:      %d\n", r.store.Version())
	fmt.Printf("id range:     [%d, %d)\n", lo, hi)
	fmt.Printf("num anchors:  %d\n", r.store.AnchorCount())
	fmt.Printf("max entries:  %d\n", r.store.MaxEntries())
	fmt.Printf("salt set:     %v\n", hasSalt)
}
