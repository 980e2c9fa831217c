// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/bending/bendboot/pkg/manifest"
)

func testEntry(c manifest.Coordinate, v string) manifest.Entry {
	return manifest.Entry{Coordinate: c, Version: v, Checksum: manifest.Sum([]byte(v)), Required: true}
}

func TestNew_Namespace(t *testing.T) {
	t.Parallel()

	for _, ns := range []string{"", "Bending", "has space", "-x"} {
		if _, err := New(ns); !errors.Is(err, ErrInvalidNamespace) {
			t.Errorf("New(%q) error = %v, want ErrInvalidNamespace", ns, err)
		}
	}
	if _, err := New("bending"); err != nil {
		t.Errorf("New(bending) error = %v", err)
	}
}

func TestAttachAndLookup(t *testing.T) {
	t.Parallel()

	b, err := New("bending")
	if err != nil {
		t.Fatal(err)
	}
	hikari := testEntry("com.zaxxer:HikariCP", "5.0.1")
	slf4j := testEntry("org.slf4j:slf4j-api", "2.0.9")

	if err := b.Attach(slf4j, "/cache/slf4j"); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if err := b.Attach(hikari, "/cache/hikari"); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	// Same entry again is a no-op.
	if err := b.Attach(hikari, "/cache/hikari"); err != nil {
		t.Errorf("re-Attach() error = %v", err)
	}
	if err := b.Attach(testEntry("com.zaxxer:HikariCP", "4.0.3"), "/cache/old"); !errors.Is(err, ErrConflict) {
		t.Errorf("conflicting Attach() error = %v, want ErrConflict", err)
	}

	lib, ok := b.Lookup("com.zaxxer:HikariCP")
	if !ok || lib.Path != "/cache/hikari" || lib.Qualified != "bending/com.zaxxer/HikariCP" {
		t.Errorf("Lookup() = %+v, %v", lib, ok)
	}
	if _, ok := b.Lookup("net.kyori:adventure-api"); ok {
		t.Error("Lookup() of unattached coordinate should fail")
	}

	libs := b.Libraries()
	if len(libs) != 2 || libs[0].Entry.Coordinate != "com.zaxxer:HikariCP" {
		t.Errorf("Libraries() = %+v", libs)
	}
	want := "/cache/hikari" + string(os.PathListSeparator) + "/cache/slf4j"
	if got := b.ClassPath(); got != want {
		t.Errorf("ClassPath() = %q, want %q", got, want)
	}
}

func TestBoundariesAreIndependent(t *testing.T) {
	t.Parallel()

	ours, _ := New("bending")
	theirs, _ := New("other-plugin")
	e := testEntry("com.zaxxer:HikariCP", "5.0.1")

	if err := theirs.Attach(testEntry("com.zaxxer:HikariCP", "3.4.5"), "/other/hikari"); err != nil {
		t.Fatal(err)
	}
	if err := ours.Attach(e, "/cache/hikari"); err != nil {
		t.Fatal(err)
	}

	lib, _ := ours.Lookup(e.Coordinate)
	other, _ := theirs.Lookup(e.Coordinate)
	if lib.Entry.Version != "5.0.1" || other.Entry.Version != "3.4.5" {
		t.Errorf("versions = %s / %s", lib.Entry.Version, other.Entry.Version)
	}
	if lib.Qualified == other.Qualified {
		t.Errorf("qualified names collide: %s", lib.Qualified)
	}
}

func TestSealAndClose(t *testing.T) {
	t.Parallel()

	b, _ := New("bending")
	if err := b.Attach(testEntry("a:b", "1.0"), "/cache/a"); err != nil {
		t.Fatal(err)
	}
	b.Seal()
	b.Seal()
	if !b.Sealed() {
		t.Error("Sealed() = false after Seal")
	}
	if err := b.Attach(testEntry("c:d", "1.0"), "/cache/c"); !errors.Is(err, ErrSealed) {
		t.Errorf("Attach() after Seal error = %v, want ErrSealed", err)
	}
	if _, ok := b.Lookup("a:b"); !ok {
		t.Error("Lookup() after Seal should still work")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, ok := b.Lookup("a:b"); ok {
		t.Error("Lookup() after Close should fail")
	}
	if err := b.Attach(testEntry("c:d", "1.0"), "/cache/c"); !errors.Is(err, ErrClosed) {
		t.Errorf("Attach() after Close error = %v, want ErrClosed", err)
	}
}

func TestConcurrentAttach(t *testing.T) {
	t.Parallel()

	b, _ := New("bending")
	coords := []manifest.Coordinate{"a:one", "a:two", "b:three", "c:four"}

	var wg sync.WaitGroup
	for _, c := range coords {
		wg.Go(func() {
			if err := b.Attach(testEntry(c, "1.0"), "/cache/"+c.Name()); err != nil {
				t.Errorf("Attach(%s) error = %v", c, err)
			}
			_ = b.Libraries()
		})
	}
	wg.Wait()

	if b.Len() != len(coords) {
		t.Errorf("Len() = %d, want %d", b.Len(), len(coords))
	}
}
