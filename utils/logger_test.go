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
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		"":        logrus.InfoLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestLoggerWritesFieldsToConsole(t *testing.T) {
	var buf bytes.Buffer
	SetConsoleOutput(&buf)
	t.Cleanup(func() { SetConsoleOutput(os.Stdout) })

	l := NewLogger("UTILTEST")
	l.SetLevel(logrus.DebugLevel)
	l.WithFields(logrus.Fields{"op": "fetch", "rows": 2}).Debug("done")

	out := buf.String()
	assert.Contains(t, out, "UTILTEST")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "op=fetch rows=2")
}

func TestSetLoggerLevel(t *testing.T) {
	l := NewLogger("LEVELTEST")
	require.True(t, SetLoggerLevel("LEVELTEST", "error"))
	assert.Equal(t, logrus.ErrorLevel, l.GetLevel())
	assert.False(t, SetLoggerLevel("NOPE", "error"))
	assert.Same(t, l, GetLogger("LEVELTEST"))
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "JSON"}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "slow",
		Data:    logrus.Fields{"error": errors.New("boom")},
	}
	b, err := f.Format(entry)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "2025-01-02 03:04:05.000", rec["time"])
	assert.Equal(t, "warning", rec["level"])
	assert.Equal(t, "JSON", rec["model"])
	assert.Equal(t, map[string]any{"error": "boom"}, rec["fields"])
}

func TestDotPathCompact(t *testing.T) {
	assert.Equal(t, "querydsl.fetch.go", dotPathCompact("querydsl/fetch.go", 30))
	assert.Equal(t, "q.fetch.go", dotPathCompact("querydsl/fetch.go", 10))
	assert.Equal(t, "fetch.go", dotPathCompact("querydsl/fetch.go", 8))
}
