// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keepalive

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bureau-foundation/warden/lib/clock"
	"github.com/bureau-foundation/warden/lib/version"
)

// Banner is the body of GET /.
const Banner = "warden is online"

// Health is the body of GET /healthz.
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// NewHandler returns the keep-alive routes. Uptime is measured from the
// clock's time at the call.
func NewHandler(clk clock.Clock) http.Handler {
	if clk == nil {
		clk = clock.Real()
	}
	started := clk.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(writer, Banner)
	})
	mux.HandleFunc("GET /healthz", func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(Health{
			Status:        "ok",
			Version:       version.Info(),
			UptimeSeconds: int64(clk.Now().Sub(started).Seconds()),
		})
	})
	return mux
}
