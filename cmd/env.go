package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"lanekit/pkg/detector"
	"lanekit/pkg/envguard"
	"lanekit/pkg/manifest"
	"lanekit/pkg/util"

	"github.com/spf13/cobra"
)

var envLane string

var envCmd = &cobra.Command{
	Use:   "env [PROJECT_PATH]",
	Short: "Audit which environment variables each lane may see",
	Long: Logo + `
Loads the project's environment file and reports, per variable, whether the
target lane's allow-list admits it. Values are never printed; this is an
audit surface, not an exfiltration one.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runEnv,
}

type envVerdict struct {
	Name        string `json:"name"`
	Allowed     bool   `json:"allowed"`
	SecretLike  bool   `json:"secret_like"`
	Integration bool   `json:"integration_managed"`
}

func runEnv(cmd *cobra.Command, args []string) {
	projectPath := "."
	if len(args) > 0 {
		projectPath = args[0]
	}

	projectPath, err := util.ValidateProjectPath(projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lane := detector.Lane(envLane)
	if envLane == "" {
		lane = laneForAudit(projectPath)
	} else if !lane.Valid() {
		fmt.Fprintf(os.Stderr, "Error: invalid lane %q (want static, edge, or workers)\n", envLane)
		os.Exit(1)
	}

	vars, err := envguard.LoadProjectEnv(projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	verdicts := make([]envVerdict, 0, len(names))
	for _, name := range names {
		verdicts = append(verdicts, envVerdict{
			Name:        name,
			Allowed:     envguard.AllowedInLane(name, lane),
			SecretLike:  envguard.Classify(name),
			Integration: envguard.IsIntegrationManaged(name),
		})
	}

	if jsonOutput || !isTerminal() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(struct {
			Lane detector.Lane `json:"lane"`
			Vars []envVerdict  `json:"vars"`
		}{lane, verdicts})
		return
	}

	fmt.Printf("Lane: %s\n\n", laneStyle.Render(string(lane)))
	if len(verdicts) == 0 {
		fmt.Println("No environment file found.")
		return
	}
	for _, v := range verdicts {
		status := "allowed"
		if !v.Allowed {
			status = "filtered"
		}
		line := fmt.Sprintf("%-40s %s", v.Name, status)
		switch {
		case !v.Allowed:
			fmt.Println(warnStyle.Render(line))
		default:
			fmt.Println(reasonStyle.Render(line))
		}
	}
}

// laneForAudit prefers the persisted verdict; without one the audit assumes
// the most restrictive lane so nothing looks safer than it is.
func laneForAudit(projectPath string) detector.Lane {
	if m, err := manifest.Load(projectPath); err == nil {
		return m.Target
	}
	return detector.LaneStatic
}

func init() {
	envCmd.Flags().StringVar(&envLane, "lane", "", "Lane to audit against (static, edge, workers); defaults to the manifest's lane")
}
