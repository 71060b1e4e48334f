package setup

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// CLI runs the setup subcommands of mcp-server-lite.
type CLI struct {
	out io.Writer
}

// NewCLI creates a CLI writing to out.
func NewCLI(out io.Writer) *CLI {
	return &CLI{out: out}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		c.showHelp()
		return nil
	}

	switch args[0] {
	case "desktop":
		return c.configure(args[1:])
	case "status":
		return c.showStatus(args[1:])
	case "help", "--help", "-h":
		c.showHelp()
		return nil
	default:
		c.showHelp()
		return fmt.Errorf("unknown setup command: %s", args[0])
	}
}

func (c *CLI) showHelp() {
	fmt.Fprint(c.out, `Pediatric GFR MCP Server Setup

Usage:
  mcp-server-lite setup <command> [options]

Commands:
  desktop   Register the server with the desktop MCP client
  status    Show current setup status

Options:
  --config    Client config file (detected by default)
  --binary    Server binary (defaults to this executable)
  --data-dir  Data directory passed as GFR_DATA_DIR
`)
}

func (c *CLI) configure(args []string) error {
	fs := flag.NewFlagSet("desktop", flag.ContinueOnError)
	fs.SetOutput(c.out)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "client config file")
	fs.StringVar(&opts.BinaryPath, "binary", "", "server binary")
	fs.StringVar(&opts.DataDir, "data-dir", "", "data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.BinaryPath == "" {
		if execPath, err := os.Executable(); err == nil {
			opts.BinaryPath = execPath
		}
	}

	path, err := Configure(opts)
	if err != nil {
		return fmt.Errorf("failed to configure client: %w", err)
	}

	fmt.Fprintf(c.out, "Registered %s in %s\n", ServerKey, path)
	fmt.Fprintf(c.out, "Server binary: %s\n", opts.BinaryPath)
	if opts.DataDir != "" {
		fmt.Fprintf(c.out, "Data directory: %s\n", opts.DataDir)
	}
	fmt.Fprintln(c.out, "Restart the client to load the new configuration.")
	return nil
}

func (c *CLI) showStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(c.out)
	configPath := fs.String("config", "", "client config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	status, err := GetStatus(*configPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Client config: %s\n", status.ConfigPath)
	fmt.Fprintf(c.out, "Registered:    %t\n", status.Configured)
	if status.Configured {
		fmt.Fprintf(c.out, "Server binary: %s\n", status.ServerPath)
		if status.DataDir != "" {
			fmt.Fprintf(c.out, "Data dir:      %s\n", status.DataDir)
		}
	}
	for _, issue := range status.Issues {
		fmt.Fprintf(c.out, "  ! %s\n", issue)
	}
	return nil
}
