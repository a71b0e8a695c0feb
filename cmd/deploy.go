package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"lanekit/pkg/config"
	"lanekit/pkg/deploy"
	"lanekit/pkg/detector"
	"lanekit/pkg/manifest"
	"lanekit/pkg/runner"
	"lanekit/pkg/scanner"
	"lanekit/pkg/util"
	"lanekit/pkg/wrangler"

	"github.com/spf13/cobra"
)

var fromManifest bool

var deployCmd = &cobra.Command{
	Use:   "deploy [PROJECT_PATH]",
	Short: "Build and deploy the project on its resolved lane",
	Long: Logo + `
Runs the lane-specific build and deploy pipeline. The lane comes from a fresh
resolution unless --from-manifest reuses the last persisted verdict.

An edge build that trips over Node.js-only code is not fatal: the attempt
switches to the workers lane mid-flight and finishes there.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runDeploy,
}

func runDeploy(cmd *cobra.Command, args []string) {
	projectPath := "."
	if len(args) > 0 {
		projectPath = args[0]
	}

	projectPath, err := util.ValidateProjectPath(projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := wrangler.EnsureInstalled(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var det detector.DetectionResult
	if fromManifest {
		m, err := manifest.Load(projectPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: no usable manifest, run 'lanekit detect' first: %v\n", err)
			os.Exit(1)
		}
		det = m.Detection()
	} else {
		det = resolveLane(projectPath)
		if err := manifest.FromDetection(det).Save(projectPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write manifest: %v\n", err)
			os.Exit(1)
		}
	}

	interactive := !jsonOutput && !skipInteractive && isTerminal()
	if interactive {
		fmt.Printf("%s\n", logoStyle.Render(Logo))
		printResolution(det)
		fmt.Println()
	}

	logger := newLogger()
	run := runner.New(logger)
	scan := scanner.New(logger)
	orchestrator := deploy.NewOrchestrator(projectPath, util.ProjectNameFromPath(projectPath), run, scan, logger)

	if interactive {
		orchestrator.SetProgressCallback(func(step deploy.Step) {
			fmt.Printf("%s\n", endingMsgStyle.Render(fmt.Sprintf("[%3d%%] %s", step.Progress, step.Description)))
		})
	}
	if verbose {
		orchestrator.SetOutputCallback(func(line string) {
			fmt.Fprintln(os.Stderr, line)
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultBuildTimeout+config.DefaultDeployTimeout)
	defer cancel()

	result, err := orchestrator.Deploy(ctx, det)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !interactive {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	if result.Switched {
		fmt.Printf("%s\n", warnStyle.Render("Edge build was incompatible, shipped on workers instead: "+result.SwitchReason))
	}
	fmt.Printf("\n%s\n", endingMsgStyle.Render("Deployed on the "+string(result.Lane)+" lane: "+result.URL))
}

func init() {
	deployCmd.Flags().BoolVar(&fromManifest, "from-manifest", false, "Reuse the persisted resolution instead of re-resolving")
}
