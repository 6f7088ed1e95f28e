// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"io"

	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - the level for logging warnings, and errors
	WarnLevel

	// InfoLevel=3 - the level for logging high-level information, results
	InfoLevel

	// DebugLevel=4 - the level for debugging information. The solver reports every new call graph node and edge
	// at that level, which stays usable on large programs.
	DebugLevel

	// TraceLevel=5 - the level for tracing. Every processed work item is logged, which is only useful on small
	// programs.
	TraceLevel
)

// logrusLevel maps a log level of the config to the corresponding logrus level
func (l LogLevel) logrusLevel() logrus.Level {
	switch {
	case l <= ErrLevel:
		return logrus.ErrorLevel
	case l == WarnLevel:
		return logrus.WarnLevel
	case l == InfoLevel:
		return logrus.InfoLevel
	case l == DebugLevel:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// LogGroup is the logger handed to every analysis. The level is the one of the config, and all messages go through
// a single logrus logger.
type LogGroup struct {
	level  LogLevel
	logger *logrus.Logger
}

// NewLogGroup returns a log group that is configured to the logging settings stored inside the config
func NewLogGroup(config *Config) *LogGroup {
	level := LogLevel(config.LogLevel)
	if level == 0 {
		level = InfoLevel
	}
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
	logger.SetLevel(level.logrusLevel())
	return &LogGroup{level: level, logger: logger}
}

// SetAllOutput sets all the output writers to the writer provided
func (l *LogGroup) SetAllOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// SetTimestamps turns the timestamps of the log entries on or off
func (l *LogGroup) SetTimestamps(on bool) {
	l.logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       !on,
		FullTimestamp:          on,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

// Level returns the level of the log group
func (l *LogGroup) Level() LogLevel {
	return l.level
}

// LogsDebug returns true when debug messages are printed. Callers use it to avoid building expensive messages.
func (l *LogGroup) LogsDebug() bool {
	return l.level >= DebugLevel
}

// LogsTrace returns true when trace messages are printed
func (l *LogGroup) LogsTrace() bool {
	return l.level >= TraceLevel
}

// Tracef prints to the trace level. Arguments are handled in the manner of Printf
func (l *LogGroup) Tracef(format string, v ...any) {
	if l.level >= TraceLevel {
		l.logger.Tracef(format, v...)
	}
}

// Debugf prints to the debug level. Arguments are handled in the manner of Printf
func (l *LogGroup) Debugf(format string, v ...any) {
	if l.level >= DebugLevel {
		l.logger.Debugf(format, v...)
	}
}

// Infof prints to the info level. Arguments are handled in the manner of Printf
func (l *LogGroup) Infof(format string, v ...any) {
	if l.level >= InfoLevel {
		l.logger.Infof(format, v...)
	}
}

// Warnf prints to the warning level. Arguments are handled in the manner of Printf
func (l *LogGroup) Warnf(format string, v ...any) {
	if l.level >= WarnLevel {
		l.logger.Warnf(format, v...)
	}
}

// Errorf prints to the error level. Arguments are handled in the manner of Printf
func (l *LogGroup) Errorf(format string, v ...any) {
	if l.level >= ErrLevel {
		l.logger.Errorf(format, v...)
	}
}

// WithField returns an entry carrying the key/value pair, for callers that log several messages about the same
// entity. The entry ignores the level gate of the group, but the logrus level is set accordingly.
func (l *LogGroup) WithField(key string, value any) *logrus.Entry {
	return l.logger.WithField(key, value)
}
