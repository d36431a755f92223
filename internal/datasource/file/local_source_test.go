package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/xxh3"
)

func writeFile(t *testing.T, dir, name, payload string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(payload), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return p
}

// TestLocalOpen covers success, missing file, and pre-canceled context.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	type tc struct {
		name        string
		prepare     func(t *testing.T) string
		makeCtx     func() context.Context
		wantErrIs   error
		wantContent string
	}

	cases := []tc{
		{
			name:        "success_reads_content",
			prepare:     func(t *testing.T) string { return writeFile(t, t.TempDir(), "sales.csv", "a,b\n1,2\n") },
			makeCtx:     context.Background,
			wantContent: "a,b\n1,2\n",
		},
		{
			name:      "missing_file_wraps_not_exist",
			prepare:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.csv") },
			makeCtx:   context.Background,
			wantErrIs: os.ErrNotExist,
		},
		{
			name:    "pre_canceled_context_short_circuits",
			prepare: func(t *testing.T) string { return writeFile(t, t.TempDir(), "sales.csv", "x") },
			makeCtx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			rc, err := NewLocal(c.prepare(t)).Open(c.makeCtx())
			if c.wantErrIs != nil {
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("errors.Is(%v, %v) = false", err, c.wantErrIs)
				}
				if rc != nil {
					_ = rc.Close()
					t.Fatalf("got non-nil ReadCloser on error: %T", rc)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() unexpected error: %v", err)
			}
			defer rc.Close()

			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("reading: %v", err)
			}
			if string(got) != c.wantContent {
				t.Fatalf("content mismatch: got %q, want %q", got, c.wantContent)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := writeFile(t, dir, "sales.csv", "x")
	xlsxPath := writeFile(t, dir, "clients.xlsx", "x")
	missing := filepath.Join(dir, "nope.csv")

	if err := Verify(csvPath, xlsxPath); err != nil {
		t.Fatalf("Verify(existing) = %v, want nil", err)
	}

	err := Verify(missing, xlsxPath)
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("Verify(missing) = %v, want ErrMissingInput", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Verify(missing) = %v, want os.ErrNotExist", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Fatalf("error %q does not name the missing path %q", err, missing)
	}

	// The second path is reported when only it is missing.
	err = Verify(csvPath, missing)
	if err == nil || !strings.Contains(err.Error(), missing) {
		t.Fatalf("Verify(ok, missing) = %v, want error naming %q", err, missing)
	}

	if err := Verify(dir); !errors.Is(err, ErrMissingInput) {
		t.Fatalf("Verify(dir) = %v, want ErrMissingInput", err)
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()

	const payload = "sales_id,date\n1,2024-01-05\n"
	p := writeFile(t, t.TempDir(), "sales.csv", payload)

	got, err := Digest(context.Background(), p)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if want := xxh3.HashString(payload); got != want {
		t.Fatalf("Digest = %x, want %x", got, want)
	}

	if _, err := Digest(context.Background(), filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Digest(missing) = %v, want os.ErrNotExist", err)
	}
}
