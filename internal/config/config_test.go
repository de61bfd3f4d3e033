// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT must be between 1 and 65535"},
		{"bad environment", func(c *Config) { c.Server.Environment = "qa" }, "ENVIRONMENT must be one of"},
		{"rate limit zero", func(c *Config) { c.Server.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS must be positive"},
		{"rate limit disabled", func(c *Config) {
			c.Server.RateLimitReqs = 0
			c.Server.RateLimitDisabled = true
		}, ""},
		{"badger without path", func(c *Config) { c.Storage.Path = "" }, "RECOMMEND_STORE_PATH is required"},
		{"memory store without path", func(c *Config) {
			c.Storage.Type = "memory"
			c.Storage.Path = ""
		}, ""},
		{"bad events mode", func(c *Config) { c.Events.Mode = "kafka" }, "EVENTS_MODE must be one of"},
		{"events disabled ignores mode", func(c *Config) {
			c.Events.Enabled = false
			c.Events.Mode = "kafka"
		}, ""},
		{"nats without stream", func(c *Config) {
			c.Events.Mode = "nats"
			c.Events.StreamName = ""
		}, "NATS_STREAM_NAME is required"},
		{"poison queue without topic", func(c *Config) { c.Events.RouterPoisonQueueTopic = "" }, "EVENTS_POISON_TOPIC is required"},
		{"strategy", func(c *Config) { c.Recommend.CombineStrategy = "avg" }, "RECOMMEND_COMBINE_STRATEGY must be one of"},
		{"reason template", func(c *Config) { c.Recommend.ReasonMultiple = "only %s" }, "RECOMMEND_REASON_SINGLE/RECOMMEND_REASON_MULTIPLE"},
		{"stale after", func(c *Config) { c.Recommend.StaleAfter = 0 }, "RECOMMEND_STALE_AFTER must be positive"},
		{"retention", func(c *Config) { c.Recommend.HistoryRetention = "soon" }, "RECOMMEND_HISTORY_RETENTION is invalid"},
		{"retention days", func(c *Config) { c.Recommend.HistoryRetention = "90 days" }, ""},
		{"plugin weight stage", func(c *Config) {
			c.Recommend.Plugins = map[string]PluginConfig{"trending": {Weights: map[string]int{"shuffle": 1}}}
		}, "recommend.plugins.trending.weights"},
		{"plugin valid overrides", func(c *Config) {
			c.Recommend.Plugins = map[string]PluginConfig{"trending": {
				Weights:       map[string]int{"generate_candidates": 5, "rerank_candidates": 10},
				CombineWeight: 1.5,
			}}
		}, ""},
		{"plugin negative weight", func(c *Config) {
			c.Recommend.Plugins = map[string]PluginConfig{"revision": {CombineWeight: -1}}
		}, "recommend.plugins.revision.combine_weight"},
		{"scheduler concurrency", func(c *Config) { c.Scheduler.Concurrency = 0 }, "SCHEDULER_CONCURRENCY must be at least 1"},
		{"scheduler disabled", func(c *Config) {
			c.Scheduler.Enabled = false
			c.Scheduler.Concurrency = 0
		}, ""},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL must be one of"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	t.Parallel()
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		cfg := defaultConfig()
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			t.Errorf("level %q: %v", level, err)
		}
	}
}

func TestValidateNATSURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr bool
		errMsg  string
	}{
		{name: "nats with port", url: "nats://localhost:4222"},
		{name: "nats with ip", url: "nats://192.168.1.100:4222"},
		{name: "nats without port", url: "nats://nats.example.com"},
		{name: "tls", url: "tls://nats.example.com:4222"},
		{name: "websocket", url: "ws://localhost:8080"},
		{name: "secure websocket", url: "wss://nats.example.com:443"},
		{name: "http scheme", url: "http://localhost:4222", wantErr: true, errMsg: "scheme must be nats, tls, ws, or wss"},
		{name: "missing host", url: "nats://", wantErr: true, errMsg: "host is required"},
		{name: "port out of range", url: "nats://localhost:99999", wantErr: true, errMsg: "out of range"},
		{name: "port zero", url: "nats://localhost:0", wantErr: true, errMsg: "out of range"},
		{name: "empty", url: "", wantErr: true, errMsg: "scheme must be nats, tls, ws, or wss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateNATSURL(tt.url)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("validateNATSURL(%q) error = %v, want error containing %q", tt.url, err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("validateNATSURL(%q) unexpected error = %v", tt.url, err)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 3860, "0.0.0.0:3860"},
		{"", 8080, ":8080"},
		{"::1", 9000, "[::1]:9000"},
	}
	for _, tt := range tests {
		s := ServerConfig{Host: tt.host, Port: tt.port}
		if got := s.Address(); got != tt.want {
			t.Errorf("Address(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
	if !(ServerConfig{Environment: "production"}).IsProduction() {
		t.Error("IsProduction() = false for production")
	}
}
