package detector

import (
	"encoding/json"
	"os"
	"path/filepath"

	"lanekit/pkg/config"
)

// readOverride checks the manual override files and then the environment
// override. First matching file wins; within a file the first recognized
// key wins. A file carrying an invalid lane value is skipped.
func readOverride(root string) (Lane, string, bool) {
	for _, file := range config.OverrideFiles {
		data, err := os.ReadFile(filepath.Join(root, file))
		if err != nil {
			continue
		}

		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}

		for _, key := range config.OverrideKeys {
			raw, ok := doc[key]
			if !ok {
				continue
			}
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				continue
			}
			if lane, ok := ParseLane(value); ok {
				return lane, file + " sets " + key + "=" + value, true
			}
		}
	}

	if value := os.Getenv(config.EnvOverride); value != "" {
		if lane, ok := ParseLane(value); ok {
			return lane, config.EnvOverride + "=" + value, true
		}
	}

	return "", "", false
}
