/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type PathFormat int

type Logger = logrus.Logger

const (
	PathFormatTruncatedRelative PathFormat = iota
	PathFormatFilenameOnly
	PathFormatShortRelative
)

const defaultTimestampFormat = "2006-01-02 15:04:05.000"

var (
	levelMu          sync.RWMutex
	defaultLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
	consoleLogFormat = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	consoleOutMu     sync.RWMutex
	consoleOut       io.Writer = os.Stdout
)

// ConfigureConsoleLogFormat selects "json" or "text" for loggers created
// afterwards.
func ConfigureConsoleLogFormat(format string) {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		consoleLogFormat = "json"
	} else {
		consoleLogFormat = "text"
	}
}

// SetConsoleOutput redirects every logger's console output.
func SetConsoleOutput(w io.Writer) {
	consoleOutMu.Lock()
	defer consoleOutMu.Unlock()
	consoleOut = w
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

// GetLogger returns the logger registered under name, creating it on first use.
func GetLogger(name string) *logrus.Logger {
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if ok {
		return l
	}
	return NewLogger(name)
}

func SetAllLoggersLevel(lvl logrus.Level) {
	levelMu.Lock()
	defaultLevel = lvl
	levelMu.Unlock()
	loggerRegistryMu.RLock()
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
	loggerRegistryMu.RUnlock()
	logrus.SetLevel(lvl)
}

// SetLoggerLevel changes one named logger; it reports false for unknown names.
func SetLoggerLevel(name string, lvlStr string) bool {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvlStr))
	return true
}

func ConfigureLogLevel(levelStr string) {
	SetAllLoggersLevel(ParseLogLevel(levelStr))
}

type consoleWriterHook struct {
	formatter logrus.Formatter
}

func (h *consoleWriterHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *consoleWriterHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	consoleOutMu.RLock()
	defer consoleOutMu.RUnlock()
	_, err = consoleOut.Write(b)
	return err
}

// NewLogger creates and registers a named logger writing to the console in
// the configured format.
func NewLogger(name string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	levelMu.RLock()
	l.SetLevel(defaultLevel)
	levelMu.RUnlock()
	l.SetReportCaller(true)
	var consoleFmt logrus.Formatter
	if consoleLogFormat == "json" {
		consoleFmt = &JSONLogFormatter{
			LoggerName:      name,
			TimestampFormat: defaultTimestampFormat,
			PathFmt:         PathFormatShortRelative,
		}
	} else {
		consoleFmt = &Log4jColorFormatter{
			LoggerName:      name,
			TimestampFormat: defaultTimestampFormat,
			PathFmt:         PathFormatTruncatedRelative,
			ColorCaller:     true,
			NameWidth:       10,
			CallerWidth:     25,
		}
	}
	l.SetFormatter(consoleFmt)
	l.AddHook(&consoleWriterHook{formatter: l.Formatter})
	RegisterLogger(name, l)
	return l
}

// Log4jColorFormatter renders "time LEVEL pid - [main] name caller : msg k=v".
type Log4jColorFormatter struct {
	LoggerName      string
	TimestampFormat string
	PathFmt         PathFormat
	ColorCaller     bool
	NameWidth       int
	CallerWidth     int
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	ts := entry.Time.Format(tsFormat(f.TimestampFormat))
	lvl := colorLevel(padLeft(strings.ToUpper(entry.Level.String()), 7), entry.Level)
	pid := magenta(fmt.Sprintf("%-6d", os.Getpid()))
	name := cyan(padLeft(limitRunes(f.LoggerName, f.NameWidth), f.NameWidth))
	callerInfo := ""
	if entry.Caller != nil {
		fileLine := callerString(f.PathFmt, entry.Caller.File, entry.Caller.Line, f.CallerWidth)
		if f.CallerWidth > 0 {
			fileLine = padLeft(fileLine, f.CallerWidth)
		}
		callerInfo = " " + fileLine
		if f.ColorCaller {
			callerInfo = faint(callerInfo)
		}
	}
	msg := entry.Message
	if len(entry.Data) > 0 {
		msg += " " + faint(fieldsString(entry.Data))
	}
	line := fmt.Sprintf("%s %s %s - %s %s%s %s %s\n", ts, lvl, pid, magenta("[main]"), name, callerInfo, faint(":"), msg)
	return []byte(line), nil
}

type JSONLogFormatter struct {
	LoggerName      string
	TimestampFormat string
	PathFmt         PathFormat
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	type jsonLogRecord struct {
		Time    string         `json:"time"`
		Level   string         `json:"level"`
		Model   string         `json:"model"`
		Caller  string         `json:"caller,omitempty"`
		Message string         `json:"message"`
		Fields  map[string]any `json:"fields,omitempty"`
	}
	rec := jsonLogRecord{
		Time:    entry.Time.Format(tsFormat(f.TimestampFormat)),
		Level:   strings.ToLower(entry.Level.String()),
		Model:   f.LoggerName,
		Message: entry.Message,
	}
	if entry.Caller != nil {
		rec.Caller = callerString(f.PathFmt, entry.Caller.File, entry.Caller.Line, 0)
	}
	if len(entry.Data) > 0 {
		rec.Fields = make(map[string]any, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func tsFormat(f string) string {
	if f != "" {
		return f
	}
	return defaultTimestampFormat
}

func fieldsString(data logrus.Fields) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, data[k])
	}
	return strings.Join(parts, " ")
}

func callerString(pf PathFormat, file string, line, width int) string {
	lineStr := strconv.Itoa(line)
	switch pf {
	case PathFormatFilenameOnly:
		return filepath.Base(file) + ":" + lineStr
	case PathFormatShortRelative:
		dir, base := filepath.Split(filepath.ToSlash(file))
		return filepath.Base(dir) + "/" + base + ":" + lineStr
	default:
		rel := filepath.Base(filepath.Dir(file)) + "/" + filepath.Base(file)
		if width > 0 {
			rel = dotPathCompact(rel, width-1-len(lineStr))
		}
		return rel + ":" + lineStr
	}
}

func padLeft(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(r)) + s
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// dotPathCompact turns "dir/file.go" into "dir.file.go", abbreviating
// directories and then the file name until it fits in max runes.
func dotPathCompact(p string, max int) string {
	if max <= 0 {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(p), "/")
	filename := parts[len(parts)-1]
	dirs := append([]string(nil), parts[:len(parts)-1]...)
	join := func() string {
		if len(dirs) == 0 {
			return filename
		}
		return strings.Join(dirs, ".") + "." + filename
	}
	out := join()
	for i := 0; len(out) > max && i < len(dirs); i++ {
		dirs[i] = limitRunes(dirs[i], 1)
		out = join()
	}
	if r := []rune(out); len(r) > max {
		return string(r[len(r)-max:])
	}
	return out
}

var (
	faint   = color.New(color.Faint).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()

	levelColors = map[logrus.Level]*color.Color{
		logrus.PanicLevel: color.New(color.FgRed, color.Bold),
		logrus.FatalLevel: color.New(color.FgRed, color.Bold),
		logrus.ErrorLevel: color.New(color.FgRed),
		logrus.WarnLevel:  color.New(color.FgYellow),
		logrus.InfoLevel:  color.New(color.FgGreen),
		logrus.DebugLevel: color.New(color.FgBlue),
	}
)

func colorLevel(s string, level logrus.Level) string {
	if c, ok := levelColors[level]; ok {
		return c.Sprint(s)
	}
	return magenta(s)
}

// EnvDefaultString returns the environment variable key, or def when unset.
func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
