package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Timestamp().Logger()

// Info writes record with log level INFO
func Info(v ...interface{}) {
	if len(v) == 1 {
		logger.Info().Interface("message", v[0]).Send()
	} else {
		logger.Info().Msg(fmt.Sprint(v...))
	}
}

func Infof(format string, v ...interface{}) {
	logger.Info().Msgf(format, v...)
}

func Debug(v ...interface{}) {
	logger.Debug().Msg(fmt.Sprint(v...))
}

func Debugf(format string, v ...interface{}) {
	logger.Debug().Msgf(format, v...)
}

func Warn(v ...interface{}) {
	logger.Warn().Msg(fmt.Sprint(v...))
}

func Warnf(format string, v ...interface{}) {
	logger.Warn().Msgf(format, v...)
}

func Error(v ...interface{}) {
	logger.Error().Msg(fmt.Sprint(v...))
}

func Errorf(format string, v ...interface{}) {
	logger.Error().Msgf(format, v...)
}

// Fatal logs with level ERROR and exits
func Fatal(v ...interface{}) {
	logger.Error().Msg(fmt.Sprint(v...))
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	logger.Error().Msgf(format, v...)
	os.Exit(1)
}

func LogSpec(spec map[string]interface{}) {
	message := types.Message{
		Type: types.SpecMessage,
		Spec: spec,
	}
	Info(message)
	if err := FileLogger(spec, "spec", ".json"); err != nil {
		Fatalf("failed to create spec file: %s", err)
	}
}

func LogConnectionStatus(err error) {
	message := types.Message{
		Type:             types.ConnectionStatusMessage,
		ConnectionStatus: &types.StatusRow{Status: types.ConnectionSucceed},
	}
	if err != nil {
		message.ConnectionStatus.Message = err.Error()
		message.ConnectionStatus.Status = types.ConnectionFailed
	}
	Info(message)
}

// LogState prints a state snapshot; persisting it is the job of the state store
func LogState(state *types.State) {
	Info(types.NewStateMessage(state))
}

// FileLogger writes content as JSON into CONFIG_FOLDER; a no-op when saving is disabled
func FileLogger(content any, fileName, fileExtension string) error {
	if viper.GetBool(constants.NoSave) {
		return nil
	}
	configFolder := viper.GetString(constants.ConfigFolder)
	if configFolder == "" {
		return nil
	}
	return FileLoggerWithPath(content, filepath.Join(configFolder, fileName+fileExtension))
}

// FileLoggerWithPath creates or truncates path and writes content as JSON
func FileLoggerWithPath(content any, path string) error {
	contentBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %s", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %s", path, err)
	}

	// written next to path and renamed into place
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, contentBytes, 0644); err != nil {
		return fmt.Errorf("failed to write file: %s", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %s", path, err)
	}
	return nil
}

func Init() {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString(constants.LogLevel)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	var currentLevel string
	logColors := map[string]string{
		"debug": "\033[36m", // Cyan
		"info":  "\033[32m", // Green
		"warn":  "\033[33m", // Yellow
		"error": "\033[31m", // Red
		"fatal": "\033[31m", // Red
	}
	// stdout carries the message stream, logs go to stderr
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
		FormatLevel: func(i interface{}) string {
			level, _ := i.(string)
			currentLevel = level
			return fmt.Sprintf("%s%s\033[0m", logColors[level], strings.ToUpper(level))
		},
		FormatMessage: func(i interface{}) string {
			switch v := i.(type) {
			case string:
				if currentLevel == zerolog.ErrorLevel.String() || currentLevel == zerolog.FatalLevel.String() {
					return fmt.Sprintf("\033[31m%s\033[0m", v)
				}
				return v
			case nil:
				return ""
			default:
				jsonMsg, err := json.Marshal(v)
				if err != nil {
					return err.Error()
				}
				return string(jsonMsg)
			}
		},
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprintf("\033[90m%s\033[0m", i)
		},
	}

	configFolder := viper.GetString(constants.ConfigFolder)
	if viper.GetBool(constants.NoSave) || configFolder == "" {
		logger = zerolog.New(console).With().Timestamp().Logger()
		return
	}

	rotatingFile := &lumberjack.Logger{
		Filename:   filepath.Join(configFolder, "logs", fmt.Sprintf("sync_%s", time.Now().UTC().Format("2006-01-02_15-04-05")), "olake.log"),
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	logger = zerolog.New(zerolog.MultiLevelWriter(console, rotatingFile)).With().Timestamp().Logger()
}
