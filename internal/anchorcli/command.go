package anchorcli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines an anchorctl subcommand with unified help generation.
type Command struct {
	// Flags defines command-specific flags. The FlagSet's own name is not
	// used for display; command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "anchorctl" in help,
	// e.g. "alloc <backing-file>" or "write [flags] <backing-file> <n>".
	Usage string

	// Short is a one-line description shown in the global command list.
	Short string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name: the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the one-line summary shown in the global help listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-28s %s", c.Usage, c.Short)
}

// PrintHelp prints full help for "anchorctl <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: anchorctl", c.Usage)
	o.Println()
	o.Println(c.Short)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command, returning the process exit
// code. Error printing happens here so that output ordering (error, then
// usage) is consistent across every command.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}

		_, _ = fmt.Fprintln(o.errOut, "error:", err)
		c.PrintHelp(o)

		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		_, _ = fmt.Fprintln(o.errOut, "error:", err)
		return 1
	}

	return 0
}
