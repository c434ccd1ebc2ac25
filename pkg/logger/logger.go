package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with convenience methods.
type Logger struct {
	*slog.Logger
}

// LogLevel represents logging levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	defaultLogger *Logger
	currentLevel  = LevelInfo
)

// Init initializes the global logger with the given level.
func Init(level string) {
	switch strings.ToLower(level) {
	case "debug":
		currentLevel = LevelDebug
	case "info", "":
		currentLevel = LevelInfo
	case "warn", "warning":
		currentLevel = LevelWarn
	case "error":
		currentLevel = LevelError
	default:
		currentLevel = LevelInfo
	}

	var slogLevel slog.Level
	switch currentLevel {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{Key: a.Key, Value: slog.StringValue(a.Value.Time().Format("15:04:05"))}
			}
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				switch level {
				case slog.LevelDebug:
					a.Value = slog.StringValue("DEBUG")
				case slog.LevelInfo:
					a.Value = slog.StringValue("INFO ")
				case slog.LevelWarn:
					a.Value = slog.StringValue("WARN ")
				case slog.LevelError:
					a.Value = slog.StringValue("ERROR")
				}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	defaultLogger = &Logger{slog.New(handler)}
}

// Get returns the default logger instance, initializing from LOG_LEVEL if needed.
func Get() *Logger {
	if defaultLogger == nil {
		Init(os.Getenv("LOG_LEVEL"))
	}
	return defaultLogger
}

// GetLevel returns the current log level.
func GetLevel() LogLevel { return currentLevel }

func Debug(msg string, args ...any) {
	if currentLevel <= LevelDebug {
		Get().Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if currentLevel <= LevelInfo {
		Get().Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if currentLevel <= LevelWarn {
		Get().Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if currentLevel <= LevelError {
		Get().Error(msg, args...)
	}
}

// WithContext returns a logger with one extra key/value pair attached.
func WithContext(key string, value any) *Logger {
	return &Logger{Get().With(key, value)}
}

// JobStarted logs the start of a worker pipeline run for a job.
func JobStarted(jobID string, workerID int) {
	Info("Job started", "job_id", jobID, "worker_id", workerID)
}

// JobCompleted logs a successfully completed job.
func JobCompleted(jobID string, duration time.Duration, confidence float64) {
	Info("Job completed", "job_id", jobID, "duration", duration.String(), "confidence", confidence)
}

// JobFailed logs a job that ended FAILED.
func JobFailed(jobID string, duration time.Duration, reason string, err error) {
	if err != nil {
		Error("Job failed", "job_id", jobID, "duration", duration.String(), "reason", reason, "error", err.Error())
	} else {
		Error("Job failed", "job_id", jobID, "duration", duration.String(), "reason", reason)
	}
}

// PipelineStep logs one post-processing step's outcome.
func PipelineStep(jobID, step string, duration time.Duration, err error) {
	if err != nil {
		Warn("Pipeline step failed, continuing with step input", "job_id", jobID, "step", step, "duration", duration.String(), "error", err.Error())
		return
	}
	Debug("Pipeline step completed", "job_id", jobID, "step", step, "duration", duration.String())
}

// HTTPRequest logs a completed HTTP request, filtering noisy status polling at INFO.
func HTTPRequest(method, path string, status int, duration time.Duration) {
	if currentLevel <= LevelInfo && strings.HasPrefix(path, "/api/v1/jobs/") && strings.Count(path, "/") == 3 {
		return
	}
	if currentLevel <= LevelDebug {
		Debug("API request", "method", method, "path", path, "status", status,
			"duration", fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6))
	}
}

// GinLogger is a gin middleware that logs requests via the package logger,
// skipping noisy job-status polling endpoints at INFO level.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		if currentLevel >= LevelInfo {
			if strings.HasPrefix(path, "/api/v1/jobs/") && c.Request.Method == "GET" {
				return
			}
			if path == "/healthz" {
				return
			}
		}

		if currentLevel <= LevelDebug {
			Debug("API request", "method", c.Request.Method, "path", path, "status", status,
				"duration", fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6), "ip", c.ClientIP())
		} else {
			fmt.Printf("INFO  %s %s %s %d %s\n",
				time.Now().Format("15:04:05"), c.Request.Method, path, status,
				fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6))
		}
	}
}

// SetGinOutput discards gin's own default logging so GinLogger is the only writer.
func SetGinOutput() {
	gin.DefaultWriter = io.Discard
}
