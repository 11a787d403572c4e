// Package download fetches model files into the registry store and reports
// progress.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"localassist/internal/catalog"
	"localassist/internal/registry"
)

// DefaultBaseURL is the HuggingFace file host.
const DefaultBaseURL = "https://huggingface.co"

// ErrNoFiles is returned for descriptors without files.
var ErrNoFiles = errors.New("descriptor lists no files")

// Fetcher downloads descriptor files over HTTP.
type Fetcher struct {
	BaseURL string
	Client  *http.Client
	// Parallel bounds concurrent file transfers per descriptor.
	Parallel int
}

// NewFetcher returns a fetcher for baseURL; empty means DefaultBaseURL.
func NewFetcher(baseURL string, client *http.Client) *Fetcher {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{BaseURL: strings.TrimRight(baseURL, "/"), Client: client, Parallel: 2}
}

// URL returns the download URL of one file.
func (f *Fetcher) URL(d catalog.Descriptor, file string) string {
	return fmt.Sprintf("%s/%s/resolve/main/%s", f.BaseURL, d.Repo, file)
}

// Fetch downloads every file of d into partial files of store and commits
// them. onProgress receives the aggregate fraction in [0,1). On any error
// the partial files are abandoned.
func (f *Fetcher) Fetch(ctx context.Context, store *registry.Store, d catalog.Descriptor, onProgress func(float64)) (err error) {
	if len(d.Files) == 0 {
		return ErrNoFiles
	}
	if err := store.Prepare(d); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = store.Abandon(d)
		}
	}()

	var (
		done     atomic.Int64
		mu       sync.Mutex
		expected = make(map[string]int64, len(d.Files))
	)
	total := func() int64 {
		if d.SizeBytes > 0 {
			return d.SizeBytes
		}
		mu.Lock()
		defer mu.Unlock()
		var t int64
		for _, n := range expected {
			t += n
		}
		return t
	}
	report := func() {
		if onProgress == nil {
			return
		}
		t := total()
		if t <= 0 {
			return
		}
		fr := float64(done.Load()) / float64(t)
		if fr >= 1 {
			fr = 0.99
		}
		onProgress(fr)
	}

	g, gctx := errgroup.WithContext(ctx)
	if f.Parallel > 0 {
		g.SetLimit(f.Parallel)
	}
	for _, file := range d.Files {
		g.Go(func() error {
			return f.fetchOne(gctx, store.PartialPath(d, file), f.URL(d, file), func(n int64) {
				mu.Lock()
				expected[file] = n
				mu.Unlock()
			}, func(n int64) {
				done.Add(n)
				report()
			})
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return store.Commit(d)
}

func (f *Fetcher) fetchOne(ctx context.Context, dst, url string, onSize func(int64), onBytes func(int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %s", url, resp.Status)
	}
	if resp.ContentLength > 0 {
		onSize(resp.ContentLength)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, &countingReader{r: resp.Body, fn: onBytes})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

type countingReader struct {
	r  io.Reader
	fn func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.fn(int64(n))
	}
	return n, err
}
