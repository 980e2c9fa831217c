// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bending/bendboot/internal/adapters"
	"github.com/bending/bendboot/internal/hostprobe"
	"github.com/bending/bendboot/internal/registry"
	"github.com/bending/bendboot/internal/testutil"
	"github.com/bending/bendboot/pkg/adapter"
	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/platform"
)

func catalogRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := adapters.Registry()
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func staticHost(p platform.ID, v string) hostprobe.Static {
	return hostprobe.Static{Platform: p, Version: hostversion.MustParse(v)}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	l := New(staticHost(platform.Paper, "1.19.2"), catalogRegistry(t))
	h, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if h.Adapter().ID() != "paper-v1_19_r1" {
		t.Errorf("adapter = %s, want paper-v1_19_r1", h.Adapter().ID())
	}
	if h.Descriptor().Range.String() != "[1.19.0, 1.19.2]" {
		t.Errorf("descriptor range = %s", h.Descriptor().Range)
	}
	if h.Host().Platform != platform.Paper {
		t.Errorf("host = %v", h.Host())
	}
	testutil.MustClose(t, h)
}

func TestLoad_UnsupportedHost(t *testing.T) {
	t.Parallel()

	l := New(staticHost(platform.Paper, "9.9.9"), catalogRegistry(t))
	_, err := l.Load(context.Background())

	var uh *registry.UnsupportedHostError
	if !errors.As(err, &uh) {
		t.Fatalf("Load() error = %v, want *UnsupportedHostError", err)
	}
	if uh.Platform != platform.Paper || uh.Version.String() != "9.9.9" {
		t.Errorf("error names %s %s", uh.Platform, uh.Version)
	}
}

func TestLoad_OnlyOnce(t *testing.T) {
	t.Parallel()

	l := New(staticHost(platform.Fabric, "1.20.1"), catalogRegistry(t))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		repeats   int
	)
	for range 8 {
		wg.Go(func() {
			_, err := l.Load(context.Background())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyLoaded):
				repeats++
			default:
				t.Errorf("Load() error = %v", err)
			}
		})
	}
	wg.Wait()

	if successes != 1 || repeats != 7 {
		t.Errorf("successes = %d, repeats = %d; want 1 and 7", successes, repeats)
	}
}

func TestLoad_FailedFirstCallStillCounts(t *testing.T) {
	t.Parallel()

	l := New(staticHost(platform.Paper, "1.0.0"), catalogRegistry(t))
	if _, err := l.Load(context.Background()); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("first Load() error = %v", err)
	}
	if _, err := l.Load(context.Background()); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("second Load() error = %v, want ErrAlreadyLoaded", err)
	}
}

func TestLoad_NotDetected(t *testing.T) {
	t.Parallel()

	l := New(hostprobe.Chain{}, catalogRegistry(t))
	if _, err := l.Load(context.Background()); !errors.Is(err, ErrHostNotDetected) {
		t.Errorf("Load() error = %v, want ErrHostNotDetected", err)
	}
}

func TestLoad_ProbeErrorIsDetectionFailure(t *testing.T) {
	t.Parallel()

	broken := errors.New("pin file: missing version")
	probe := hostprobe.ProbeFunc(func(context.Context) (hostprobe.Host, error) { return hostprobe.Host{}, broken })
	_, err := New(probe, catalogRegistry(t)).Load(context.Background())
	if !errors.Is(err, ErrHostNotDetected) || !errors.Is(err, broken) {
		t.Errorf("Load() error = %v, want ErrHostNotDetected wrapping the probe error", err)
	}
}

func TestLoad_FactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	l := New(staticHost(platform.Sponge, "8.0.0"), catalogRegistry(t),
		WithFactory(func(adapter.ID) (adapter.Capabilities, error) { return nil, boom }))
	if _, err := l.Load(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want boom", err)
	}
}

func TestLoad_DataVersionMismatch(t *testing.T) {
	t.Parallel()

	probe := hostprobe.Static{Platform: platform.Paper, Version: hostversion.MustParse("1.19.2"), DataVersion: 1}
	h, err := New(probe, catalogRegistry(t)).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	diags := h.Diagnostics()
	if len(diags) != 1 || diags[0].Code != CodeDataVersionMismatch {
		t.Errorf("Diagnostics() = %+v", diags)
	}
}
