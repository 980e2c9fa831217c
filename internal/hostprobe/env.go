// SPDX-License-Identifier: MPL-2.0

package hostprobe

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
)

type (
	// Env reads BENDBOOT_HOST_PLATFORM and BENDBOOT_HOST_VERSION.
	Env struct {
		// Environment replaces the process environment when non-nil.
		Environment map[string]string
	}

	envHost struct {
		Platform string `env:"BENDBOOT_HOST_PLATFORM"`
		Version  string `env:"BENDBOOT_HOST_VERSION"`
	}
)

// Probe implements Probe. It only answers when both variables are set. A lone
// BENDBOOT_HOST_PLATFORM is also the config override for host.platform and is
// paired with a version by a later probe, so it reports ErrNotDetected.
func (e Env) Probe(context.Context) (Host, error) {
	var raw envHost
	opts := env.Options{}
	if e.Environment != nil {
		opts.Environment = e.Environment
	}
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return Host{}, fmt.Errorf("parse env: %w", err)
	}

	if raw.Platform == "" || raw.Version == "" {
		return Host{}, ErrNotDetected
	}
	return newHost("env", raw.Platform, raw.Version)
}
