// Copyright 2017 The Nakama Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logctx builds the *zap.Logger every component constructor
// takes explicitly, matching heroiclabs-nakama/server/log.go: a console
// logger by default, with an optional file sink, and a verbosity gate
// that defaults to Info and drops to Debug under --verbose.
package logctx

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type verbosityEnabler struct {
	verbose *bool
}

func (v *verbosityEnabler) Enabled(level zapcore.Level) bool {
	return *v.verbose || level > zapcore.DebugLevel
}

// NewConsoleLogger returns a human-readable, colorized logger writing to
// output, gated by verbose (re-read on every log call, so flipping the
// flag at runtime takes effect immediately).
func NewConsoleLogger(output *os.File, verbose *bool) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})
	core := zapcore.NewCore(encoder, zapcore.AddSync(output), &verbosityEnabler{verbose: verbose})
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel))
}

// NewJSONLogger returns a JSON logger writing to output, suited to a log
// file rather than an interactive terminal.
func NewJSONLogger(output *os.File, verbose *bool) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})
	core := zapcore.NewCore(encoder, zapcore.AddSync(output), &verbosityEnabler{verbose: verbose})
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel))
}

// New builds the engine's logger: stdout console output unless
// logToFile names a directory, in which case a JSON file under
// <logToFile>/boogle.log is used instead.
func New(logToFile string, verbose bool) (*zap.Logger, error) {
	v := verbose
	if logToFile == "" {
		return NewConsoleLogger(os.Stdout, &v), nil
	}

	if err := os.MkdirAll(logToFile, 0o755); err != nil {
		return nil, fmt.Errorf("logctx: create log dir %s: %w", logToFile, err)
	}
	path := filepath.Join(logToFile, "boogle.log")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("logctx: create log file %s: %w", path, err)
	}
	return NewJSONLogger(f, &v), nil
}
