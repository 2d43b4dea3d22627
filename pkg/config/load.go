package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load builds a Settings value starting from Defaults, applying path (a
// qbi.yaml file, if it exists) and then QBI_* environment variables, in
// that precedence order. path may be empty; a missing file is not an error.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnv(s), nil
			}
			return Settings{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	return applyEnv(s), nil
}

func applyEnv(s Settings) Settings {
	if v, ok := envInt("QBI_MAX_CALL_DEPTH"); ok {
		s.MaxCallDepth = v
	}
	if v, ok := envInt64("QBI_MAX_STEPS"); ok {
		s.MaxSteps = v
	}
	if v, ok := envInt("QBI_MAX_FILE_HANDLES"); ok {
		s.MaxFileHandles = v
	}
	if v, ok := envInt("QBI_ON_ERROR_RECURSION_CAP"); ok {
		s.OnErrorRecursionCap = v
	}
	if v, ok := envInt("QBI_CONSOLE_WIDTH"); ok {
		s.ConsoleWidth = v
	}
	return s
}

func envInt(name string) (int, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envInt64(name string) (int64, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
