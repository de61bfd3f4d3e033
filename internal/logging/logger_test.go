// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// withCapturedLogger swaps the global logger for one writing to buf and
// restores the previous logger and level afterwards.
func withCapturedLogger(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	SetLogger(zerolog.New(buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.Format != "json" {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if cfg.Caller {
		t.Error("expected default caller to be false")
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})

	Info().Msg("suppressed")
	Warn().Msg("kept")

	output := buf.String()
	if strings.Contains(output, "suppressed") {
		t.Errorf("info message logged at warn level: %s", output)
	}
	if !strings.Contains(output, `"level":"warn"`) || !strings.Contains(output, `"message":"kept"`) {
		t.Errorf("unexpected output: %s", output)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}
	if !strings.Contains(output, `"service":"wayfinder"`) {
		t.Errorf("service field missing: %s", output)
	}
}

func TestInit_Console(t *testing.T) {
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})
	Info().Str("plugin", "trending").Msg("console line")

	output := buf.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("console format produced JSON: %s", output)
	}
	if !strings.Contains(output, "console line") || !strings.Contains(output, "plugin=") {
		t.Errorf("unexpected console output: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if result := parseLevel(tt.input); result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	withCapturedLogger(t, &buf)

	tests := []struct {
		name    string
		logFunc func()
		level   string
	}{
		{"Debug", func() { Debug().Msg("m") }, "debug"},
		{"Info", func() { Info().Msg("m") }, "info"},
		{"Warn", func() { Warn().Msg("m") }, "warn"},
		{"Error", func() { Error().Msg("m") }, "error"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.logFunc()
		if want := `"level":"` + tt.level + `"`; !strings.Contains(buf.String(), want) {
			t.Errorf("%s: expected %s in output: %s", tt.name, want, buf.String())
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	withCapturedLogger(t, &buf)

	Error().Err(errBoom).Msg("failed")
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("Error output = %s", buf.String())
	}

	buf.Reset()
	l := WithComponent("scheduler")
	l.Info().Msg("tick")
	if !strings.Contains(buf.String(), `"component":"scheduler"`) {
		t.Errorf("WithComponent output = %s", buf.String())
	}
}

func TestInit_VersionAndCaller(t *testing.T) {
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Config{Level: "debug", Version: "1.2.3", Caller: true, Timestamp: true, Output: &buf})
	Debug().Msg("hello")

	output := buf.String()
	for _, want := range []string{`"version":"1.2.3"`, `"caller":`, `"time":`, `"level":"debug"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestNewTestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewTestLogger(&buf)
	logger.Info().Msg("captured")
	if !strings.Contains(buf.String(), "captured") {
		t.Errorf("NewTestLogger output = %s", buf.String())
	}
}
