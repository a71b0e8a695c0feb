package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"lanekit/cmd/ui/spinner"
	"lanekit/pkg/config"
	"lanekit/pkg/detector"
	"lanekit/pkg/manifest"
	"lanekit/pkg/scanner"
	"lanekit/pkg/util"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// detectCmd resolves a project's runtime lane and persists the manifest.
var detectCmd = &cobra.Command{
	Use:   "detect [PROJECT_PATH]",
	Short: "Resolve the project's runtime lane",
	Long: Logo + `
Inspects the project and resolves which runtime lane it belongs on: static,
edge, or workers. The verdict, its reasons, and the supporting evidence are
written to ` + config.LocalStateDir + `/` + config.ManifestFile + ` for the deploy stage.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runDetect,
}

func runDetect(cmd *cobra.Command, args []string) {
	projectPath := "."
	if len(args) > 0 {
		projectPath = args[0]
	}

	projectPath, err := util.ValidateProjectPath(projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result := resolveLane(projectPath)

	if err := manifest.FromDetection(result).Save(projectPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write manifest: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput || skipInteractive || !isTerminal() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	fmt.Printf("%s\n", logoStyle.Render(Logo))
	printResolution(result)
	fmt.Printf("\n%s\n", endingMsgStyle.Render("Resolution saved to "+manifest.Path(projectPath)))
	fmt.Printf("%s\n", endingMsgStyle.Render("Run 'lanekit deploy' to ship it!"))
}

// resolveLane runs the resolver, with a spinner when attached to a TTY.
func resolveLane(projectPath string) detector.DetectionResult {
	logger := newLogger()
	scan := scanner.New(logger)
	engine := detector.NewEngine(projectPath, scan, logger)

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultScanTimeout)
	defer cancel()

	if jsonOutput || skipInteractive || !isTerminal() {
		return engine.Resolve(ctx)
	}

	spinnerProgram := tea.NewProgram(spinner.New("Resolving runtime lane..."))
	go func() {
		if _, err := spinnerProgram.Run(); err != nil {
			// Suppress the "program was killed" error message since it's expected
			if err.Error() != "program was killed" {
				fmt.Fprintf(os.Stderr, "Error running spinner: %v\n", err)
			}
		}
	}()

	result := engine.Resolve(ctx)
	spinnerProgram.Send(spinner.DoneMsg("Lane resolved"))
	spinnerProgram.Quit()
	return result
}

func printResolution(result detector.DetectionResult) {
	fmt.Printf("Lane:   %s\n", laneStyle.Render(string(result.Lane)))
	fmt.Printf("Origin: %s\n", string(result.Origin))
	if result.Switched {
		fmt.Printf("%s\n", warnStyle.Render("Switched from edge: "+result.SwitchReason))
	}

	if len(result.Reasons) > 0 {
		fmt.Println("\nReasons:")
		for _, reason := range result.Reasons {
			fmt.Println(reasonStyle.Render("• " + reason))
		}
	}
	if len(result.Notes) > 0 {
		fmt.Println("\nNotes:")
		for _, note := range result.Notes {
			fmt.Println(noteStyle.Render("• " + note))
		}
	}
}
