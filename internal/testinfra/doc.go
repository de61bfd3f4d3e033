// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package testinfra provides container infrastructure for integration tests.
//
// The package uses testcontainers-go and only builds with the integration
// tag. Unit tests cover the event bus against an embedded NATS server; the
// containers here exercise the external broker mode, where Wayfinder
// connects to a NATS server it does not own.
//
// # NATS Container
//
//	func TestExternalBroker(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//
//	    nc, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    testinfra.CleanupContainer(t, nc.Container)
//
//	    transport, err := eventbus.NewTransport(ctx, &config.EventsConfig{
//	        Mode: eventbus.ModeNATS,
//	        URL:  nc.URL,
//	    }, watermill.NopLogger{})
//	    ...
//	}
//
// # Running
//
//	go test -tags integration ./internal/testinfra/...
//
// Tests skip when Docker is unavailable or -short is set.
package testinfra
