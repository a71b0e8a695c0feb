package cmd

import (
	"fmt"
	"os"

	"lanekit/pkg/logging"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const Version = "0.3.0"

var (
	jsonOutput      bool
	skipInteractive bool
	verbose         bool

	logoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F6821F")).Bold(true)
	laneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAC6")).Bold(true)
	reasonStyle    = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("245"))
	noteStyle      = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("190")).Italic(true)
	endingMsgStyle = lipgloss.NewStyle().PaddingLeft(1).Foreground(lipgloss.Color("170")).Bold(true)
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

const Logo = `
██╗      █████╗ ███╗   ██╗███████╗██╗  ██╗██╗████████╗
██║     ██╔══██╗████╗  ██║██╔════╝██║ ██╔╝██║╚══██╔══╝
██║     ███████║██╔██╗ ██║█████╗  █████╔╝ ██║   ██║
██║     ██╔══██║██║╚██╗██║██╔══╝  ██╔═██╗ ██║   ██║
███████╗██║  ██║██║ ╚████║███████╗██║  ██╗██║   ██║
╚══════╝╚═╝  ╚═╝╚═╝  ╚═══╝╚══════╝╚═╝  ╚═╝╚═╝   ╚═╝
`

var rootCmd = &cobra.Command{
	Use:   "lanekit [PROJECT_PATH]",
	Short: "Resolve and deploy web projects to the right runtime lane",
	Long: Logo + `
Lanekit inspects a web project, resolves which runtime lane it belongs on
(static, edge, or workers), and runs the matching build and deploy pipeline.

The resolution is explainable: every verdict ships with the reasons and the
source evidence that produced it.`,
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	Run:     runDetect,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logging.Setup(level, jsonOutput)
}

func isTerminal() bool {
	if os.Getenv("CI") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	rootCmd.SetVersionTemplate("lanekit version {{.Version}}\n")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(healCmd)
	rootCmd.AddCommand(envCmd)

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON (disables interactive mode)")
	rootCmd.PersistentFlags().BoolVar(&skipInteractive, "no-interactive", false, "Skip interactive prompts (for CI/automation)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
