// Package config loads interpreter-wide settings from an optional qbi.yaml,
// with compiled-in defaults and QBI_* environment overrides.
package config

// Settings holds the interpreter's tunables. Of these, only MaxSteps is
// currently passed on to the VM (by cmd/qbi); the other fields are loaded
// and overridable but nothing reads them.
type Settings struct {
	// MaxCallDepth is a GOSUB/SUB/FUNCTION nesting limit; the VM does not
	// enforce it.
	MaxCallDepth int `yaml:"max_call_depth"`
	// MaxSteps bounds the number of instructions a single run may execute
	// (0 disables the limit).
	MaxSteps int64 `yaml:"max_steps"`
	// MaxFileHandles is a limit on concurrently OPEN files; the VM does not
	// enforce it.
	MaxFileHandles int `yaml:"max_file_handles"`
	// OnErrorRecursionCap is a limit on ON ERROR GOTO handler re-entry;
	// the VM does not enforce it.
	OnErrorRecursionCap int `yaml:"on_error_recursion_cap"`
	// ConsoleWidth is a default console column count; the console does
	// not read it.
	ConsoleWidth int `yaml:"console_width"`
}

// Defaults returns the compiled-in settings used when no qbi.yaml and no
// QBI_* environment variables are present.
func Defaults() Settings {
	return Settings{
		MaxCallDepth:        DefaultMaxCallDepth,
		MaxSteps:            DefaultMaxSteps,
		MaxFileHandles:      DefaultFileHandles,
		OnErrorRecursionCap: DefaultOnErrorRecursionCap,
		ConsoleWidth:        DefaultConsoleWidth,
	}
}

const (
	DefaultMaxCallDepth        = 256
	DefaultMaxSteps            = 0
	DefaultFileHandles         = 255
	DefaultOnErrorRecursionCap = 64
	DefaultConsoleWidth        = 80
)
