// Package transfer moves document artifacts from the messaging transport onto
// durable disk. The committer calls it inside the registration transaction;
// nothing durable may have been mutated by the time a transfer fails.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"velorent/internal/domain"
)

// ArtifactFetcher resolves an opaque transport reference to file bytes. The
// bot layer implements it over Telegram's getFile API.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Error marks a failed fetch or disk write. Callers treat it as retryable: the
// transport reference stays valid and staged data is untouched.
type Error struct {
	Op  string
	Ref string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transfer %s (ref %s): %v", e.Op, e.Ref, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Gateway downloads artifacts and persists them under a deterministic name.
type Gateway struct {
	fetcher ArtifactFetcher
	dir     string
	logger  *slog.Logger
}

func NewGateway(fetcher ArtifactFetcher, dir string, logger *slog.Logger) *Gateway {
	return &Gateway{fetcher: fetcher, dir: dir, logger: logger}
}

// FetchAndStore downloads the artifact and writes it to
// {dir}/{ownerID}_{docType}_{ref}.jpg, returning the absolute path. Re-invoking
// with the same triple overwrites the same file, so retries are safe.
func (g *Gateway) FetchAndStore(ctx context.Context, ref string, ownerID int64, docType domain.DocumentType) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", &Error{Op: "mkdir", Ref: ref, Err: err}
	}

	data, err := g.fetcher.Fetch(ctx, ref)
	if err != nil {
		return "", &Error{Op: "fetch", Ref: ref, Err: err}
	}

	filename := fmt.Sprintf("%d_%s_%s.jpg", ownerID, docType, ref)
	path, err := filepath.Abs(filepath.Join(g.dir, filename))
	if err != nil {
		return "", &Error{Op: "resolve", Ref: ref, Err: err}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &Error{Op: "write", Ref: ref, Err: err}
	}

	g.logger.Debug("artifact stored", "path", path, "bytes", len(data))
	return path, nil
}
