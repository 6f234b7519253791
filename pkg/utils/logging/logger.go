package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultDir is where log files are written unless InitLoggerIn is given another directory
const DefaultDir = "logs"

// InitLogger builds the scheduler's logger: coloured console output at Info and
// a JSON file under logs/ at Debug. env prefixes the log file name.
func InitLogger(env string) (*zap.Logger, error) {
	return InitLoggerIn(DefaultDir, env)
}

// InitLoggerIn is InitLogger writing its file into dir
func InitLoggerIn(dir, env string) (*zap.Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	logFile, err := os.OpenFile(FileName(dir, env, time.Now()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileConfig := zap.NewProductionEncoderConfig()
	fileConfig.TimeKey = "timestamp"
	fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(os.Stdout), consoleLevel(env)),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(logFile), zapcore.DebugLevel),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("env", env))

	return logger, nil
}

// FileName returns the log file path for a run started at the given time
func FileName(dir, env string, started time.Time) string {
	if env == "" {
		env = "default"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", env, started.Format("2006-01-02_15-04-05")))
}

// consoleLevel keeps the console quiet except when developing locally
func consoleLevel(env string) zapcore.Level {
	if env == "dev" || env == "local" {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
