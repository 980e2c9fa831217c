// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/bending/bendboot/internal/adapters"
	"github.com/bending/bendboot/internal/hostprobe"
	"github.com/bending/bendboot/internal/loader"
	"github.com/bending/bendboot/internal/provision"
	"github.com/bending/bendboot/internal/registry"
	"github.com/bending/bendboot/internal/resolver"
	"github.com/bending/bendboot/pkg/adapter"
	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/manifest"
	"github.com/bending/bendboot/pkg/platform"
)

type fixture struct {
	manifest []byte
	server   *httptest.Server
	hits     func() int
}

// fixtureEntry describes one manifest entry of a fixture.
type fixtureEntry struct {
	Coordinate manifest.Coordinate
	// Body is served for the entry. Nil is listed with the checksum of "genuine"
	// but served as "tampered".
	Body     []byte
	Optional bool
	// Unserved entries answer 404.
	Unserved bool
	// Stall holds the request open until the client gives up.
	Stall bool
}

// newFixture serves each coordinate's content from a Maven-layout test server
// and returns a text manifest of required entries describing it.
func newFixture(t *testing.T, content map[manifest.Coordinate][]byte) *fixture {
	t.Helper()

	entries := make([]fixtureEntry, 0, len(content))
	for c, body := range content {
		entries = append(entries, fixtureEntry{Coordinate: c, Body: body})
	}
	return newFixtureEntries(t, entries...)
}

// newFixtureEntries is newFixture with per-entry control; the manifest keeps
// the given order.
func newFixtureEntries(t *testing.T, entries ...fixtureEntry) *fixture {
	t.Helper()

	var (
		mu      sync.Mutex
		hits    int
		files   = map[string][]byte{}
		stalled = map[string]bool{}
		text    string
	)
	for _, fe := range entries {
		e := manifest.Entry{Coordinate: fe.Coordinate, Version: "1.0.0"}
		body := fe.Body
		sum := manifest.Sum(body)
		if body == nil {
			sum = manifest.Sum([]byte("genuine"))
			body = []byte("tampered")
		}
		path := "/" + provision.ArtifactPath(e)
		if !fe.Unserved {
			files[path] = body
		}
		stalled[path] = fe.Stall
		line := fmt.Sprintf("%s 1.0.0 %s", fe.Coordinate, sum.Hex())
		if fe.Optional {
			line += " optional"
		}
		text += line + "\n"
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		body, ok := files[r.URL.Path]
		stall := stalled[r.URL.Path]
		mu.Unlock()
		if stall {
			<-r.Context().Done()
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return &fixture{
		manifest: []byte(text),
		server:   srv,
		hits: func() int {
			mu.Lock()
			defer mu.Unlock()
			return hits
		},
	}
}

func newSequence(t *testing.T, f *fixture, host hostprobe.Probe, cacheDir string, onTransition TransitionFunc) *Sequence {
	t.Helper()

	reg, err := adapters.Registry()
	require.NoError(t, err)
	cache, err := provision.NewCache(cacheDir)
	require.NoError(t, err)
	src, err := provision.NewHTTPSource("test", f.server.URL, provision.WithHTTPClient(f.server.Client()))
	require.NoError(t, err)

	return NewSequence(Dependencies{
		Loader:       loader.New(host, reg),
		Provisioner:  provision.New(cache, "bending", provision.WithSources(src), provision.WithRetryInterval(time.Millisecond)),
		Manifest:     f.manifest,
		ManifestName: "dependencies.txt",
		OnTransition: onTransition,
	})
}

func paperHost(version string) hostprobe.Static {
	return hostprobe.Static{Platform: platform.Paper, Version: hostversion.MustParse(version)}
}

func TestRun_FreshInstall(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[manifest.Coordinate][]byte{
		"com.zaxxer:HikariCP":     []byte("hikari"),
		"org.slf4j:slf4j-api":     []byte("slf4j"),
		"net.kyori:adventure-api": []byte("adventure"),
	})

	var (
		mu     sync.Mutex
		states []State
	)
	seq := newSequence(t, f, paperHost("1.19.2"), t.TempDir(), func(_, to State, _ error) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, to)
	})

	rt, err := seq.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateReady, seq.State())
	require.NoError(t, seq.WaitForReady(context.Background()))

	require.Equal(t, adapter.ID("paper-v1_19_r1"), rt.Handle.Adapter().ID())
	require.Equal(t, 3, rt.Boundary.Len())
	require.True(t, rt.Boundary.Sealed())
	require.Equal(t, 3, rt.Report.Fetches)

	require.Equal(t, []State{StateProbingHost, StateAdapterResolved, StateManifestLoaded, StateProvisioning, StateReady}, states)
	require.NoError(t, rt.Close())
}

func TestRun_UnsupportedHostFailsBeforeProvisioning(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[manifest.Coordinate][]byte{"com.zaxxer:HikariCP": []byte("hikari")})
	seq := newSequence(t, f, paperHost("9.9.9"), t.TempDir(), nil)

	rt, err := seq.Run(context.Background())
	require.Nil(t, rt)
	require.ErrorIs(t, err, registry.ErrNotFound)
	require.ErrorContains(t, err, "paper 9.9.9")

	var se *StartupError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StateProbingHost, se.State)
	require.Equal(t, KindUnsupportedHost, se.Kind)

	require.Equal(t, StateFailed, seq.State())
	require.Equal(t, 0, f.hits(), "no dependency may be fetched for an unsupported host")

	waitErr := seq.WaitForReady(context.Background())
	require.ErrorIs(t, waitErr, ErrStartupFailed)
	require.ErrorIs(t, waitErr, registry.ErrNotFound)
}

func TestRun_IntegrityFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[manifest.Coordinate][]byte{
		"org.slf4j:slf4j-api": []byte("slf4j"),
		"com.zaxxer:HikariCP": nil,
	})
	seq := newSequence(t, f, paperHost("1.19.2"), t.TempDir(), nil)

	rt, err := seq.Run(context.Background())
	require.Nil(t, rt)
	require.ErrorIs(t, err, provision.ErrIntegrityFailure)
	require.Equal(t, KindIntegrityFailure, Classify(err))
	require.Equal(t, StateFailed, seq.State())

	var se *StartupError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StateProvisioning, se.State)
}

func TestRun_OptionalFetchFailureStillReady(t *testing.T) {
	t.Parallel()

	f := newFixtureEntries(t,
		fixtureEntry{Coordinate: "com.zaxxer:HikariCP", Body: []byte("hikari")},
		fixtureEntry{Coordinate: "net.kyori:adventure-api", Body: []byte("adventure"), Optional: true, Unserved: true},
	)
	seq := newSequence(t, f, paperHost("1.19.2"), t.TempDir(), nil)
	var logs bytes.Buffer
	seq.deps.Logger = log.New(&logs)

	rt, err := seq.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateReady, seq.State())

	_, ok := rt.Boundary.Lookup("com.zaxxer:HikariCP")
	require.True(t, ok)
	_, ok = rt.Boundary.Lookup("net.kyori:adventure-api")
	require.False(t, ok, "an unavailable optional entry must not be attached")
	require.Len(t, rt.Report.Skipped, 1)

	require.Contains(t, logs.String(), "WARN")
	require.Contains(t, logs.String(), "net.kyori:adventure-api")
	require.NoError(t, rt.Close())
}

func TestRun_CancelledDuringProvisioningFails(t *testing.T) {
	t.Parallel()

	f := newFixtureEntries(t,
		fixtureEntry{Coordinate: "org.example:opt", Body: []byte("opt"), Optional: true, Stall: true},
	)
	seq := newSequence(t, f, paperHost("1.19.2"), t.TempDir(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	rt, err := seq.Run(ctx)
	require.Nil(t, rt)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, StateFailed, seq.State())

	var se *StartupError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StateProvisioning, se.State)
}

func TestRun_DiagnosticsLoggedOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	var logs bytes.Buffer
	logger := log.New(&logs)

	reg, err := adapters.Registry()
	require.NoError(t, err)
	host := paperHost("1.19.2")
	host.DataVersion = 1

	seq := newSequence(t, f, host, t.TempDir(), nil)
	seq.deps.Loader = loader.New(host, reg, loader.WithLogger(logger))
	seq.deps.Logger = logger

	rt, err := seq.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rt.Handle.Diagnostics(), 1)
	require.Equal(t, 1, strings.Count(logs.String(), loader.CodeDataVersionMismatch))
	require.NoError(t, rt.Close())
}

func TestRun_ManifestParseError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.manifest = []byte("not a valid line\n")
	seq := newSequence(t, f, paperHost("1.19.2"), t.TempDir(), nil)

	_, err := seq.Run(context.Background())
	require.ErrorIs(t, err, manifest.ErrParse)
	require.Equal(t, KindManifestParse, Classify(err))

	var se *StartupError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StateAdapterResolved, se.State)
}

func TestRun_ForeignManifestRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.manifest = []byte("version: 1\nplugin: \"other\"\nentries: []\n")
	seq := newSequence(t, f, paperHost("1.19.2"), t.TempDir(), nil)
	seq.deps.ManifestName = "dependencies.cue"

	rt, err := seq.Run(context.Background())
	require.Nil(t, rt)
	require.ErrorIs(t, err, ErrForeignManifest)
	require.ErrorIs(t, err, manifest.ErrParse)
	require.Equal(t, KindManifestParse, Classify(err))
	require.ErrorContains(t, err, `"other"`)
}

func TestRun_SatisfiedByHostSkipsFetch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[manifest.Coordinate][]byte{"com.zaxxer:HikariCP": []byte("hikari")})
	seq := newSequence(t, f, paperHost("1.19.2"), t.TempDir(), nil)
	seq.deps.Libraries = func() (resolver.Snapshot, error) {
		return resolver.SnapshotOf(resolver.Library{Coordinate: "com.zaxxer:HikariCP", Version: "1.2.0"}), nil
	}

	rt, err := seq.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rt.Partition.Satisfied, 1)
	require.Equal(t, 0, rt.Boundary.Len())
	require.Equal(t, 0, f.hits())
}

func TestRun_OnlyOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	seq := newSequence(t, f, paperHost("1.19.2"), t.TempDir(), nil)

	_, err := seq.Run(context.Background())
	require.NoError(t, err)
	_, err = seq.Run(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, StateReady, seq.State())
}

func TestRun_EmbeddedManifest(t *testing.T) {
	t.Parallel()

	m, err := LoadManifest(nil, "")
	require.NoError(t, err)
	require.Equal(t, "bending", m.Plugin())
	require.NotEmpty(t, EmbeddedManifest())
}
