package logging_test

import (
	"io"
	"os"

	"github.com/basilfold/qbi/pkg/logging"
)

func ExampleLogger_basic() {
	logger, err := logging.NewLogger(logging.LoggerConfig{
		MinLevel: logging.INFO,
		Format:   logging.TextFormat,
	})
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Info("compiler started")
	logger.Warn("array redimensioned without PRESERVE")
	logger.Error("unhandled runtime trap")
}

func ExampleLogger_withFields() {
	logger, err := logging.NewLogger(logging.LoggerConfig{
		MinLevel: logging.DEBUG,
		Format:   logging.JSONFormat,
	})
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.InfoWithFields("program compiled", map[string]interface{}{
		"source":       "input.bas",
		"instructions": 842,
	})

	logger.ErrorWithFields("division by zero", map[string]interface{}{
		"pc":   120,
		"line": 44,
	})
}

func ExampleContextLogger() {
	logger, err := logging.NewLogger(logging.LoggerConfig{
		MinLevel: logging.DEBUG,
		Format:   logging.JSONFormat,
	})
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	runID := logging.NewRequestID()
	ctxLogger := logger.WithRequestID(runID)

	ctxLogger.Info("run started")
	ctxLogger.Info("run completed")

	frameLogger := ctxLogger.
		WithField("sub", "DrawBoard").
		WithField("depth", 3)

	frameLogger.Info("call frame entered")
}

func ExampleLogger_fileLogging() {
	logger, err := logging.NewLogger(logging.LoggerConfig{
		MinLevel:    logging.INFO,
		Format:      logging.JSONFormat,
		FilePath:    "/var/log/qbi/interpreter.log",
		MaxFileSize: 10 * 1024 * 1024, // 10MB
		MaxBackups:  5,
	})
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Info("this will be logged to file with rotation")
}

func ExampleLogger_multipleOutputs() {
	file, err := os.OpenFile("qbi.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	logger, err := logging.NewLogger(logging.LoggerConfig{
		MinLevel: logging.INFO,
		Format:   logging.TextFormat,
		Outputs:  []io.Writer{os.Stdout, file},
	})
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Info("this goes to both stdout and file")
}

func ExampleLogger_withDefaultLogger() {
	err := logging.InitDefaultLogger(logging.LoggerConfig{
		MinLevel:      logging.INFO,
		Format:        logging.JSONFormat,
		IncludeCaller: true,
	})
	if err != nil {
		panic(err)
	}

	logging.Info("interpreter started")
	logging.Warn("line exceeds 255 characters")

	runLogger := logging.WithRequestID("run-123")
	runLogger.Info("executing program")

	subLogger := logging.WithFields(map[string]interface{}{
		"sub":   "Main",
		"trace": true,
	})
	subLogger.Info("sub entered")
}

func ExampleLogger_differentLevels() {
	logger, err := logging.NewLogger(logging.LoggerConfig{
		MinLevel: logging.DEBUG,
		Format:   logging.TextFormat,
	})
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Debug("opcode dispatch: PUSHCONST")
	logger.Info("program loaded")
	logger.Warn("GOTO target is a forward label")
	logger.Error("subscript out of range")
	// logger.Fatal("internal VM corruption")
}

func ExampleLogger_productionConfig() {
	logger, err := logging.NewLogger(logging.LoggerConfig{
		MinLevel:          logging.INFO,
		Format:            logging.JSONFormat,
		IncludeCaller:     true,
		IncludeStackTrace: true,
		BufferSize:        5000,
		FilePath:          "/var/log/qbi/interpreter.log",
		MaxFileSize:       50 * 1024 * 1024, // 50MB
		MaxBackups:        10,
	})
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Info("qbi started")
}
