package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"lanekit/pkg/heal"
	"lanekit/pkg/util"

	"github.com/spf13/cobra"
)

var healCmd = &cobra.Command{
	Use:   "heal [PROJECT_PATH]",
	Short: "Rewrite edge runtime declarations for the workers lane",
	Long: Logo + `
Makes a project coherent with the workers lane: rewrites edge runtime
declarations to nodejs, adds Node.js types to tsconfig, and removes the
static-export flag from the next config. Running it twice changes nothing.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHeal,
}

func runHeal(cmd *cobra.Command, args []string) {
	projectPath := "."
	if len(args) > 0 {
		projectPath = args[0]
	}

	projectPath, err := util.ValidateProjectPath(projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	report, err := heal.Run(projectPath, newLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput || !isTerminal() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(struct {
			ChangedFiles []string `json:"changed_files"`
		}{report.ChangedFiles})
		return
	}

	if len(report.ChangedFiles) == 0 {
		fmt.Println("Nothing to heal.")
		return
	}
	fmt.Printf("%s\n", endingMsgStyle.Render(fmt.Sprintf("Healed %d file(s):", len(report.ChangedFiles))))
	for _, file := range report.ChangedFiles {
		fmt.Println(reasonStyle.Render("• " + file))
	}
}
