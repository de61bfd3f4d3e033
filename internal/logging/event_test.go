// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestTriggerLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tl := NewTriggerLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))
	ctx := ContextWithCorrelationID(context.Background(), "evt-1")

	tl.LogTriggerHandled(ctx, "evt-1", "wayfinder.user.registered", 5, 20*time.Millisecond)
	output := buf.String()
	for _, want := range []string{
		`"component":"eventbus"`,
		`"correlation_id":"evt-1"`,
		`"event_id":"evt-1"`,
		`"topic":"wayfinder.user.registered"`,
		`"user_id":5`,
		`"message":"trigger handled"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}

	buf.Reset()
	tl.LogTriggerRejected(ctx, "msg-1", "wayfinder.user.login", errBoom)
	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("rejected output = %s", buf.String())
	}

	buf.Reset()
	tl.LogTriggerFailed(ctx, "evt-2", "wayfinder.recommendations.reset", 9, errBoom)
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("failed output = %s", buf.String())
	}
}

func TestWatermillLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var adapter watermill.LoggerAdapter = NewWatermillLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))

	adapter = adapter.With(watermill.LogFields{"router": "triggers"})
	adapter.Info("handler started", watermill.LogFields{"handler": "registered"})

	output := buf.String()
	if !strings.Contains(output, `"router":"triggers"`) || !strings.Contains(output, `"handler":"registered"`) {
		t.Errorf("info output = %s", output)
	}

	buf.Reset()
	adapter.Error("publish failed", errBoom, nil)
	if !strings.Contains(buf.String(), `"error":"boom"`) || !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("error output = %s", buf.String())
	}
}
