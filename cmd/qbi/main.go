package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/basilfold/qbi/pkg/codegen"
	"github.com/basilfold/qbi/pkg/config"
	"github.com/basilfold/qbi/pkg/debug"
	"github.com/basilfold/qbi/pkg/decompiler"
	"github.com/basilfold/qbi/pkg/errs"
	"github.com/basilfold/qbi/pkg/formatter"
	"github.com/basilfold/qbi/pkg/host"
	"github.com/basilfold/qbi/pkg/hotreload"
	"github.com/basilfold/qbi/pkg/linter"
	"github.com/basilfold/qbi/pkg/logging"
	"github.com/basilfold/qbi/pkg/parser"
	"github.com/basilfold/qbi/pkg/vm"
)

var version = "0.1.0"

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
)

func printInfo(msg string)    { infoColor.Printf("[INFO] %s\n", msg) }
func printSuccess(msg string) { successColor.Printf("[OK] %s\n", msg) }
func printWarning(msg string) { warningColor.Printf("[WARN] %s\n", msg) }

func main() {
	var rootCmd = &cobra.Command{
		Use:     "qbi",
		Short:   "A QBASIC-compatible interpreter",
		Long:    `qbi lexes, lints, compiles, and runs QBASIC-dialect source files on a bytecode VM.`,
		Version: version,
	}

	var runCmd = &cobra.Command{
		Use:   "run <file.bas>",
		Short: "Run a BASIC source file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().BoolP("watch", "w", false, "Re-lint and rerun on save")
	runCmd.Flags().String("metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().String("config", "", "Path to qbi.yaml (./qbi.yaml if omitted)")

	var compileCmd = &cobra.Command{
		Use:   "compile <file.bas>",
		Short: "Lint and codegen a source file without running it",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	compileCmd.Flags().StringP("output", "o", "", "Write the instruction listing to this file instead of <file>.lst")

	var disasmCmd = &cobra.Command{
		Use:   "disasm <file.bas>",
		Short: "Compile and print the VM instruction listing",
		Args:  cobra.ExactArgs(1),
		RunE:  runDisasm,
	}
	disasmCmd.Flags().StringP("output", "o", "", "Write the listing to this file instead of stdout")

	var lintCmd = &cobra.Command{
		Use:   "lint <file.bas>",
		Short: "Check a source file for structural and type errors",
		Args:  cobra.ExactArgs(1),
		RunE:  runLint,
	}

	var fmtCmd = &cobra.Command{
		Use:   "fmt <file.bas>",
		Short: "Pretty-print a source file",
		Args:  cobra.ExactArgs(1),
		RunE:  runFmt,
	}
	fmtCmd.Flags().BoolP("write", "W", false, "Overwrite the file in place instead of printing to stdout")

	var replCmd = &cobra.Command{
		Use:   "repl <file.bas>",
		Short: "Load a program and debug it interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  runRepl,
	}

	rootCmd.AddCommand(runCmd, compileCmd, disasmCmd, lintCmd, fmtCmd, replCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%sError:%s %s\n", errs.Bold+errs.Red, errs.Reset, err)
		os.Exit(1)
	}
}

// buildProgram runs the lex/parse/lint/codegen pipeline shared by run,
// compile, and disasm. On a lint failure it prints every diagnostic and
// returns the first one as err.
func buildProgram(path string) (*vm.Program, string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	source := string(src)

	prog, err := parser.Parse(source)
	if err != nil {
		fmt.Fprint(os.Stderr, errs.FormatError(err, source, true))
		return nil, source, err
	}

	result, lintErrs := linter.Analyze(prog)
	if len(lintErrs) > 0 {
		for _, le := range lintErrs {
			fmt.Fprint(os.Stderr, errs.FormatError(le, source, true))
		}
		return nil, source, lintErrs[0]
	}

	vmProg, err := codegen.Generate(prog, result)
	if err != nil {
		fmt.Fprint(os.Stderr, errs.FormatError(err, source, true))
		return nil, source, err
	}
	return vmProg, source, nil
}

func runLint(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	source := string(src)

	prog, err := parser.Parse(source)
	if err != nil {
		fmt.Fprint(os.Stderr, errs.FormatError(err, source, true))
		return err
	}

	_, lintErrs := linter.Analyze(prog)
	if len(lintErrs) == 0 {
		printSuccess(fmt.Sprintf("%s: no issues found", path))
		return nil
	}
	for _, le := range lintErrs {
		fmt.Fprint(os.Stderr, errs.FormatError(le, source, true))
	}
	return fmt.Errorf("%d issue(s) found", len(lintErrs))
}

func runCompile(cmd *cobra.Command, args []string) error {
	path := args[0]
	output, _ := cmd.Flags().GetString("output")

	start := time.Now()
	vmProg, _, err := buildProgram(path)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	listing := decompiler.Decompile(vmProg).String()
	if output == "" {
		output = changeExtension(path, ".lst")
	}
	if err := os.WriteFile(output, []byte(listing), 0600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	printSuccess(fmt.Sprintf("Compiled %s -> %s", path, output))
	printInfo(fmt.Sprintf("Compilation time: %s", elapsed))
	printInfo(fmt.Sprintf("Instructions generated: %d", len(vmProg.Instructions)))
	return nil
}

func runDisasm(cmd *cobra.Command, args []string) error {
	path := args[0]
	output, _ := cmd.Flags().GetString("output")

	vmProg, _, err := buildProgram(path)
	if err != nil {
		return err
	}
	listing := decompiler.Decompile(vmProg).String()

	if output == "" {
		fmt.Print(listing)
		return nil
	}
	if err := os.WriteFile(output, []byte(listing), 0600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	printSuccess(fmt.Sprintf("Wrote listing to %s", output))
	return nil
}

func runFmt(cmd *cobra.Command, args []string) error {
	path := args[0]
	write, _ := cmd.Flags().GetBool("write")

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	prog, err := parser.Parse(string(src))
	if err != nil {
		fmt.Fprint(os.Stderr, errs.FormatError(err, string(src), true))
		return err
	}

	out := formatter.Format(prog)
	if !write {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(path, []byte(out), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	printSuccess(fmt.Sprintf("Formatted %s", path))
	return nil
}

func loadSettings(cmd *cobra.Command) config.Settings {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = "qbi.yaml"
	}
	settings, err := config.Load(path)
	if err != nil {
		printWarning(fmt.Sprintf("using default settings: %v", err))
		return config.Defaults()
	}
	return settings
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	watch, _ := cmd.Flags().GetBool("watch")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	settings := loadSettings(cmd)

	logger, err := logging.NewLogger(logging.LoggerConfig{
		MinLevel: logging.INFO,
		Outputs:  []io.Writer{os.Stderr},
		Format:   logging.TextFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Close()

	var metrics *vm.Metrics
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = vm.NewMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.WithFields(map[string]interface{}{"error": err.Error()}).Error("metrics server stopped")
			}
		}()
		printInfo(fmt.Sprintf("Serving metrics on %s/metrics", metricsAddr))
	}

	execute := func() error {
		runID := uuid.New().String()
		rlog := logger.WithRequestID(runID)

		vmProg, _, err := buildProgram(path)
		if err != nil {
			return err
		}

		console := host.NewTermConsole()
		machine := vm.NewVM(vmProg, console)
		machine.MaxSteps = settings.MaxSteps
		machine.Metrics = metrics

		rlog.Info("starting run")
		if err := machine.Run(); err != nil {
			fmt.Fprint(os.Stderr, errs.FormatError(err, "", true))
			rlog.WithFields(map[string]interface{}{"error": err.Error()}).Error("run failed")
			return err
		}
		rlog.Info("run completed")
		return nil
	}

	if !watch {
		return execute()
	}
	return watchAndRun(path, execute)
}

// watchRunner adapts a closure to hotreload.Runner so RunManager can drive
// qbi's own build-and-execute pipeline on every save.
type watchRunner struct {
	execute func() error
}

func (r watchRunner) Run(path string) error { return r.execute() }

func watchAndRun(path string, execute func() error) error {
	if err := execute(); err != nil {
		printWarning(fmt.Sprintf("run failed: %v", err))
	}
	printInfo(fmt.Sprintf("Watching %s for changes. Press Ctrl+C to stop.", path))

	rm := hotreload.NewRunManager(path, watchRunner{execute: execute},
		hotreload.WithOnRun(func(ev hotreload.RunEvent) {
			printInfo(fmt.Sprintf("Rerunning %s", path))
			if !ev.Success {
				printWarning(fmt.Sprintf("run failed: %v", ev.Error))
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rm.Start(ctx); err != nil {
		return err
	}
	defer rm.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	printSuccess("Watch mode stopped")
	return nil
}

func runRepl(cmd *cobra.Command, args []string) error {
	path := args[0]

	vmProg, _, err := buildProgram(path)
	if err != nil {
		return err
	}

	console := host.NewTermConsole()
	machine := vm.NewVM(vmProg, console)
	debugger := debug.NewDebugger(machine)

	repl := debug.NewREPL(debugger, os.Stdin, os.Stdout)
	repl.Start()
	return nil
}

func changeExtension(path, newExt string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + newExt
}
