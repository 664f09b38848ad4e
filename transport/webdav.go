package transport

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVProvider implements Provider over a WebDAV server (spec §6):
// PROPFIND/MKCOL/PUT/MOVE/DELETE/GET, with SHA-512 computed locally against
// a streamed GET (gowebdav has no Digest-header passthrough of its own).
//
// MaxParallel bounds concurrent outbound HTTP connections across every Put
// call on this provider, via a counting semaphore — the same "constant plus
// a channel" idiom the teacher uses to cap concurrent broadcasts.
type WebDAVProvider struct {
	client *gowebdav.Client
	sem    chan struct{}
}

// NewWebDAVProvider builds a provider talking to root using basic auth
// (user/pass may be empty if the server trusts network position or a
// bearer token set on a shared transport), capping concurrency at
// maxParallel simultaneous PUTs.
func NewWebDAVProvider(root, user, pass string, maxParallel int) *WebDAVProvider {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &WebDAVProvider{
		client: gowebdav.NewClient(root, user, pass),
		sem:    make(chan struct{}, maxParallel),
	}
}

func (p *WebDAVProvider) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WebDAVProvider) release() { <-p.sem }

// Put streams src to dest over WebDAV, creating any missing parent
// collections first (spec §6's MKCOL requirement). The returned reference
// is simply dest, since WebDAV PUT is synchronous — there is no async task
// handle the way Globus has one.
func (p *WebDAVProvider) Put(ctx context.Context, src, dest string, timeout time.Duration) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", err
	}
	defer p.release()

	if err := p.mkdirAll(path.Dir(dest)); err != nil {
		return "", fmt.Errorf("webdav mkdir %s: %w", path.Dir(dest), err)
	}

	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	if err := p.client.WriteStream(dest, f, 0644); err != nil {
		return "", fmt.Errorf("webdav put %s -> %s: %w", src, dest, err)
	}
	return dest, nil
}

func (p *WebDAVProvider) mkdirAll(dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	return p.client.MkdirAll(dir, 0755)
}

// Verify is synchronous for WebDAV: the PUT in Put has already either
// succeeded or returned an error, so a stat of the remote path is sufficient
// to confirm it landed (spec §6).
func (p *WebDAVProvider) Verify(ctx context.Context, reference string) (VerifyStatus, error) {
	_, err := p.client.Stat(reference)
	if err != nil {
		return VerifyFailed, err
	}
	return VerifyOK, nil
}

// Cancel removes a partially-written remote object.
func (p *WebDAVProvider) Cancel(ctx context.Context, reference string) error {
	return p.client.Remove(reference)
}

// Checksum streams reference back and computes its SHA-512 locally.
func (p *WebDAVProvider) Checksum(ctx context.Context, reference string) (string, error) {
	r, err := p.client.ReadStream(reference)
	if err != nil {
		return "", fmt.Errorf("webdav read %s: %w", reference, err)
	}
	defer r.Close()

	h := sha512.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
