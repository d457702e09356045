package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loykin/shellact/internal/config"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds the persistent flags shared by all subcommands.
type GlobalFlags struct {
	UID        int    // selects /var/run/user/<uid> unless run-dir overrides
	RunDir     string // explicit runtime directory for status files
	ConfigPath string // optional TOML config
}

// RunFlags holds flags for the run command. Detached and ID belong to the
// re-exec handshake and stay hidden from users.
type RunFlags struct {
	Detached bool
	ID       string
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	Daemonize bool
	LogFile   string
}

// buildRoot creates the root command and wires the subcommands.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	runFlags := &RunFlags{}
	serveFlags := &ServeFlags{}

	shellactCommand := command{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createRunCommand(shellactCommand, globalFlags, runFlags),
		createCheckCommand(shellactCommand, globalFlags),
		createServeCommand(shellactCommand, globalFlags, serveFlags),
	)
	return root
}

// createRootCommand creates the root command with the persistent flags.
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "shellact",
		Short: "Detached shell action harness",
		Long: `Shellact launches shell commands detached from the calling process and
records their outcome in a per-user runtime directory, one JSON status file
per action id. A separate check operation reports the status and consumes
the file once the action is no longer running.

Examples:
  echo '{"id":"act-1"}' | shellact run -- /usr/bin/backup --full
  echo '{"id":"act-1"}' | shellact check
  shellact serve --config=config.toml   # actions HTTP API daemon`,
	}

	root.PersistentFlags().IntVar(&flags.UID, "uid", 1000, "user id used to build the /var/run/user/<uid> status path")
	root.PersistentFlags().StringVar(&flags.RunDir, "run-dir", "", "status file directory (overrides the uid derived path)")
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")

	return root
}

// createRunCommand creates the run subcommand.
func createRunCommand(shellactCommand command, globalFlags *GlobalFlags, runFlags *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- <command...>",
		Short: "Launch a command detached from the caller",
		Long: `Run reads a JSON action request {"id":"..."} from standard input, writes a
running status record, and hands the command off to a detached process in a
new session with its standard streams on the null device. The invoker gets
control back immediately and exits 0; the detached process overwrites the
record with the terminal status when the command finishes.

Examples:
  echo '{"id":"act-1"}' | shellact run -- /bin/sleep 300
  echo '{"id":"act-2"}' | shellact run --uid=1001 -- /usr/bin/rsync -a src dst`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(globalFlags, cmd.Flags().Changed("uid"))
			if err != nil {
				return err
			}
			return shellactCommand.Run(cfg, globalFlags, runFlags, args, os.Stdin, os.Stdout)
		},
	}

	// Internal handshake flags used by the detached re-exec child.
	cmd.Flags().BoolVar(&runFlags.Detached, "detached", false, "")
	cmd.Flags().StringVar(&runFlags.ID, "id", "", "")
	_ = cmd.Flags().MarkHidden("detached")
	_ = cmd.Flags().MarkHidden("id")

	return cmd
}

// createCheckCommand creates the check subcommand.
func createCheckCommand(shellactCommand command, globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report and consume an action's status",
		Long: `Check reads a JSON action request {"id":"..."} from standard input and
writes the action's status record to standard output. A record that is no
longer running is deleted after being reported, so a terminal status is
observed exactly once.

Examples:
  echo '{"id":"act-1"}' | shellact check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(globalFlags, cmd.Flags().Changed("uid"))
			if err != nil {
				return err
			}
			return shellactCommand.Check(cfg, os.Stdin, os.Stdout)
		},
	}
}

// createServeCommand creates the serve subcommand.
func createServeCommand(shellactCommand command, globalFlags *GlobalFlags, serveFlags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the actions HTTP API daemon",
		Long: `Serve exposes the run/check operations over HTTP. Actions scheduled through
the API execute in-process; the daemon plays the long-lived parent, so no
re-exec detachment is needed.

Examples:
  shellact serve --config=config.toml
  shellact serve --config=config.toml --daemonize --logfile=/var/log/shellact.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(globalFlags, cmd.Flags().Changed("uid"))
			if err != nil {
				return err
			}
			return shellactCommand.Serve(cfg, serveFlags)
		},
	}

	cmd.Flags().BoolVar(&serveFlags.Daemonize, "daemonize", false, "run as daemon in background")
	cmd.Flags().StringVar(&serveFlags.LogFile, "logfile", "", "redirect daemon logs to file")

	return cmd
}

// resolveConfig merges the optional config file with flag overrides.
// Flags win over the file; the file wins over defaults.
func resolveConfig(flags *GlobalFlags, uidChanged bool) (*config.Config, error) {
	cfg := config.Default()
	if flags.ConfigPath != "" {
		var err error
		cfg, err = config.Load(flags.ConfigPath)
		if err != nil {
			return nil, err
		}
	}
	if uidChanged {
		cfg.UID = flags.UID
	}
	if flags.RunDir != "" {
		cfg.RunDir = flags.RunDir
	}
	return cfg, nil
}
