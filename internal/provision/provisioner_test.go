// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bending/bendboot/pkg/manifest"
)

type repo struct {
	mu        sync.Mutex
	artifacts map[string][]byte
	hits      map[string]int
	// failFirst makes the first n requests for a path answer 503.
	failFirst map[string]int
	delay     time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newRepo() *repo {
	return &repo{artifacts: map[string][]byte{}, hits: map[string]int{}, failFirst: map[string]int{}}
}

func (r *repo) add(e manifest.Entry, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts["/"+ArtifactPath(e)] = content
}

func (r *repo) totalHits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, h := range r.hits {
		n += h
	}
	return n
}

func (r *repo) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.maxInFlight.Load()
		if n <= peak || r.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if r.delay > 0 {
		select {
		case <-req.Context().Done():
			return
		case <-time.After(r.delay):
		}
	}

	r.mu.Lock()
	r.hits[req.URL.Path]++
	content, ok := r.artifacts[req.URL.Path]
	fail := r.failFirst[req.URL.Path]
	if fail > 0 {
		r.failFirst[req.URL.Path] = fail - 1
	}
	r.mu.Unlock()

	switch {
	case fail > 0:
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	case !ok:
		http.NotFound(w, req)
	default:
		_, _ = w.Write(content)
	}
}

func artifact(c manifest.Coordinate, version string, required bool) (manifest.Entry, []byte) {
	content := []byte("jar bytes of " + string(c) + "@" + version)
	return manifest.Entry{Coordinate: c, Version: version, Checksum: manifest.Sum(content), Required: required}, content
}

func newTestProvisioner(t *testing.T, cacheDir string, opts ...Option) *Provisioner {
	t.Helper()
	cache, err := NewCache(cacheDir)
	require.NoError(t, err)
	defaults := []Option{WithRetryInterval(time.Millisecond), WithFetchTimeout(5 * time.Second)}
	return New(cache, "bending", append(defaults, opts...)...)
}

func httpSource(t *testing.T, r *repo) *HTTPSource {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	src, err := NewHTTPSource("central", srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return src
}

func TestProvision_FreshInstallThenIdempotent(t *testing.T) {
	t.Parallel()

	r := newRepo()
	var entries []manifest.Entry
	for _, c := range []manifest.Coordinate{"com.zaxxer:HikariCP", "org.slf4j:slf4j-api", "net.kyori:adventure-api"} {
		e, content := artifact(c, "1.2.3", true)
		r.add(e, content)
		entries = append(entries, e)
	}
	cacheDir := t.TempDir()
	p := newTestProvisioner(t, cacheDir, WithSources(httpSource(t, r)))

	boundary, report, err := p.Provision(context.Background(), entries)
	require.NoError(t, err)
	require.NotNil(t, boundary)
	require.True(t, boundary.Sealed())
	require.Equal(t, 3, boundary.Len())
	require.Len(t, report.Attached, 3)
	require.Equal(t, 3, report.Fetches)
	require.Equal(t, 0, report.CacheHits())

	for _, e := range entries {
		lib, ok := boundary.Lookup(e.Coordinate)
		require.True(t, ok, e.Coordinate)
		require.NoError(t, VerifyFile(lib.Path, e, "test"))
		require.True(t, strings.HasPrefix(lib.Path, cacheDir))
	}

	hitsBefore := r.totalHits()
	boundary2, report2, err := p.Provision(context.Background(), entries)
	require.NoError(t, err)
	require.Equal(t, 3, boundary2.Len())
	require.Equal(t, 0, report2.Fetches)
	require.Equal(t, 3, report2.CacheHits())
	require.Equal(t, hitsBefore, r.totalHits(), "second run must not touch the network")
}

func TestProvision_ChecksumMismatchFailsStartup(t *testing.T) {
	t.Parallel()

	r := newRepo()
	good, goodContent := artifact("org.slf4j:slf4j-api", "2.0.9", true)
	bad, _ := artifact("com.zaxxer:HikariCP", "5.0.1", true)
	r.add(good, goodContent)
	r.add(bad, []byte("tampered"))

	cacheDir := t.TempDir()
	p := newTestProvisioner(t, cacheDir, WithSources(httpSource(t, r)))

	boundary, report, err := p.Provision(context.Background(), []manifest.Entry{good, bad})
	require.Nil(t, boundary)
	require.ErrorIs(t, err, ErrIntegrityFailure)

	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, bad.Coordinate, ie.Entry.Coordinate)
	require.Equal(t, manifest.Sum([]byte("tampered")), ie.Got)
	failed := make([]manifest.Coordinate, 0, len(report.Failed))
	for _, o := range report.Failed {
		failed = append(failed, o.Entry.Coordinate)
	}
	require.Contains(t, failed, bad.Coordinate)

	cache, _ := NewCache(cacheDir)
	_, statErr := os.Stat(cache.Path(bad))
	require.True(t, errors.Is(statErr, os.ErrNotExist), "mismatching bytes must not be cached")
	assertNoTempFiles(t, cacheDir)
}

func TestProvision_OptionalFailureTolerated(t *testing.T) {
	t.Parallel()

	r := newRepo()
	required, content := artifact("com.zaxxer:HikariCP", "5.0.1", true)
	optional, _ := artifact("net.kyori:adventure-api", "4.14.0", false)
	r.add(required, content)

	p := newTestProvisioner(t, t.TempDir(), WithSources(httpSource(t, r)))
	boundary, report, err := p.Provision(context.Background(), []manifest.Entry{optional, required})
	require.NoError(t, err)
	require.Equal(t, 1, boundary.Len())
	_, ok := boundary.Lookup(optional.Coordinate)
	require.False(t, ok)

	require.Len(t, report.Skipped, 1)
	require.Equal(t, optional.Coordinate, report.Skipped[0].Entry.Coordinate)
	require.ErrorIs(t, report.Skipped[0].Err, ErrArtifactNotFound)
	require.ErrorIs(t, report.Skipped[0].Err, ErrFetchFailure)
}

func TestProvision_CancelledDuringOptionalFetchFails(t *testing.T) {
	t.Parallel()

	optional, content := artifact("net.kyori:adventure-api", "4.14.0", false)
	r := newRepo()
	r.add(optional, content)
	r.delay = 5 * time.Second

	root := t.TempDir()
	p := newTestProvisioner(t, root, WithSources(httpSource(t, r)))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	boundary, report, err := p.Provision(ctx, []manifest.Entry{optional})
	require.Nil(t, boundary, "a cancelled provisioning run must not hand out a boundary")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrFetchFailure)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, optional.Coordinate, fe.Entry.Coordinate)
	require.Empty(t, report.Attached)
	assertNoTempFiles(t, root)
}

func TestProvision_RequiredNotFound(t *testing.T) {
	t.Parallel()

	required, _ := artifact("com.zaxxer:HikariCP", "5.0.1", true)
	r := newRepo()
	p := newTestProvisioner(t, t.TempDir(), WithSources(httpSource(t, r)), WithRetries(3))

	boundary, _, err := p.Provision(context.Background(), []manifest.Entry{required})
	require.Nil(t, boundary)
	require.ErrorIs(t, err, ErrFetchFailure)
	require.ErrorIs(t, err, ErrArtifactNotFound)
	require.Equal(t, 1, r.totalHits(), "not found is permanent and must not be retried")
}

func TestProvision_Timeout(t *testing.T) {
	t.Parallel()

	required, content := artifact("com.zaxxer:HikariCP", "5.0.1", true)
	r := newRepo()
	r.add(required, content)
	r.delay = 2 * time.Second

	p := newTestProvisioner(t, t.TempDir(), WithSources(httpSource(t, r)), WithFetchTimeout(50*time.Millisecond), WithRetries(1))

	_, report, err := p.Provision(context.Background(), []manifest.Entry{required})
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, ErrFetchFailure)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.True(t, fe.Timeout)
	require.Equal(t, 2, report.Fetches, "timeouts are retried")
}

func TestProvision_TransientErrorRetried(t *testing.T) {
	t.Parallel()

	e, content := artifact("com.zaxxer:HikariCP", "5.0.1", true)
	r := newRepo()
	r.add(e, content)
	r.failFirst["/"+ArtifactPath(e)] = 2

	p := newTestProvisioner(t, t.TempDir(), WithSources(httpSource(t, r)), WithRetries(3))
	boundary, report, err := p.Provision(context.Background(), []manifest.Entry{e})
	require.NoError(t, err)
	require.Equal(t, 1, boundary.Len())
	require.Equal(t, 3, report.Fetches)
}

func TestProvision_FallsBackToNextSource(t *testing.T) {
	t.Parallel()

	e, content := artifact("com.zaxxer:HikariCP", "5.0.1", true)

	mirror := t.TempDir()
	dest := filepath.Join(mirror, filepath.FromSlash(ArtifactPath(e)))
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, content, 0o644))

	p := newTestProvisioner(t, t.TempDir(), WithSources(httpSource(t, newRepo()), DirSource{Root: mirror}))
	boundary, report, err := p.Provision(context.Background(), []manifest.Entry{e})
	require.NoError(t, err)
	require.Equal(t, 1, boundary.Len())
	require.Equal(t, "dir:"+mirror, report.Attached[0].Source)
}

func TestProvision_IntegrityFailureFallsBackToGenuineSource(t *testing.T) {
	t.Parallel()

	e, content := artifact("com.zaxxer:HikariCP", "5.0.1", true)
	evil := newRepo()
	evil.add(e, []byte("tampered"))
	genuine := newRepo()
	genuine.add(e, content)

	p := newTestProvisioner(t, t.TempDir(), WithSources(httpSource(t, evil), httpSource(t, genuine)), WithRetries(3))
	boundary, _, err := p.Provision(context.Background(), []manifest.Entry{e})
	require.NoError(t, err)
	require.Equal(t, 1, boundary.Len())
	require.Equal(t, 1, evil.totalHits(), "integrity failures are not retried against the same source")
}

func TestProvision_CorruptedCacheIsRefetched(t *testing.T) {
	t.Parallel()

	e, content := artifact("com.zaxxer:HikariCP", "5.0.1", true)
	r := newRepo()
	r.add(e, content)
	cacheDir := t.TempDir()

	cache, err := NewCache(cacheDir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(cache.Path(e)), 0o755))
	require.NoError(t, os.WriteFile(cache.Path(e), []byte("bit rot"), 0o644))

	p := newTestProvisioner(t, cacheDir, WithSources(httpSource(t, r)))
	boundary, report, err := p.Provision(context.Background(), []manifest.Entry{e})
	require.NoError(t, err)
	require.Equal(t, 1, boundary.Len())
	require.Equal(t, 1, report.Fetches)
	require.Equal(t, 0, report.CacheHits())
	require.NoError(t, VerifyFile(cache.Path(e), e, "test"))
}

func TestProvision_WorkersBoundConcurrency(t *testing.T) {
	t.Parallel()

	r := newRepo()
	r.delay = 20 * time.Millisecond
	var entries []manifest.Entry
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		e, content := artifact(manifest.Coordinate("org.example:"+name), "1.0.0", true)
		r.add(e, content)
		entries = append(entries, e)
	}

	p := newTestProvisioner(t, t.TempDir(), WithSources(httpSource(t, r)), WithWorkers(2))
	boundary, _, err := p.Provision(context.Background(), entries)
	require.NoError(t, err)
	require.Equal(t, len(entries), boundary.Len())
	require.LessOrEqual(t, int(r.maxInFlight.Load()), 2)
}

func TestProvision_NoSources(t *testing.T) {
	t.Parallel()

	e, _ := artifact("com.zaxxer:HikariCP", "5.0.1", true)
	p := newTestProvisioner(t, t.TempDir())
	_, _, err := p.Provision(context.Background(), []manifest.Entry{e})
	require.ErrorIs(t, err, ErrNoSources)
	require.ErrorIs(t, err, ErrFetchFailure)
}

func TestProvision_Empty(t *testing.T) {
	t.Parallel()

	p := newTestProvisioner(t, t.TempDir())
	boundary, report, err := p.Provision(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, boundary.Len())
	require.True(t, boundary.Sealed())
	require.Equal(t, 0, report.Fetches)
}

func TestProvision_InvalidNamespace(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	_, _, err = New(cache, "Not Valid").Provision(context.Background(), nil)
	require.Error(t, err)
}

func assertNoTempFiles(t *testing.T, root string) {
	t.Helper()
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".download-") {
			t.Errorf("leftover temp file %s", path)
		}
		return nil
	})
	require.NoError(t, err)
}
