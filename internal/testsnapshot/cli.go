package testsnapshot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/pkg/logger"
)

const (
	outputFilePermission = 0o600
	shutdownTimeout      = 5 * time.Second
	readHeaderTimeout    = 10 * time.Second
)

// Options controls the generator tool.
type Options struct {
	Config
	Output   string // Dump file to write, skipped when empty
	Serve    string // Address to serve the upstream stand-in on, skipped when empty
	Login    string
	Password string
}

// Run writes the generated dump and, if requested, serves it as the upstream
// until ctx is done. Served snapshots are regenerated per request with the
// current time as capture time.
func Run(ctx context.Context, opts Options) error {
	log := logger.Get().Named("gen-snapshot")

	if opts.Output != "" {
		snap := Generate(opts.Config)
		if err := WriteDump(opts.Output, snap); err != nil {
			return err
		}
		log.Info(ctx, "wrote snapshot",
			logger.String("path", opts.Output),
			logger.Int("records", snap.Len()),
			logger.Int("applicants", snap.Applicants()),
		)
	}

	if opts.Serve == "" {
		return nil
	}

	source := func() *model.Snapshot {
		cfg := opts.Config
		cfg.CapturedAt = time.Now()
		return Generate(cfg)
	}
	srv := &http.Server{
		Addr:              opts.Serve,
		Handler:           NewUpstream(source, opts.Login, opts.Password),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "serving upstream", logger.String("addr", opts.Serve))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve upstream: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// WriteDump writes snap to path in the dump layout.
func WriteDump(path string, snap *model.Snapshot) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePermission)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := model.Encode(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ShowHelp prints usage information for the generator.
func ShowHelp() {
	os.Stdout.WriteString(`Synthetic Snapshot Generator
============================

Generates applications snapshots for local runs and load tests.

Usage:
  go run ./cmd/gen-snapshot [options]

Options:
  -applicants int
        Number of applicants (default 1000)
  -max-programs int
        Upper bound of programs per applicant (default 3)
  -days int
        Spread first-seen times over this many days (default 14)
  -seed uint
        Random seed (default 1)
  -output string
        Dump file to write (default "data/latest.json")
  -serve string
        Serve the SOAP upstream stand-in on this address
  -login, -password string
        Basic auth credentials required by the stand-in
  -help
        Show this help message

Examples:
  # Seed the data directory
  go run ./cmd/gen-snapshot -applicants 5000

  # Serve an upstream for the refresh loop
  go run ./cmd/gen-snapshot -output "" -serve :9090
`)
}
