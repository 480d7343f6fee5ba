package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/net/http/httpproxy"
)

// DefaultUserAgent is the User-Agent header sent with requests
const DefaultUserAgent = "vipsfetch/1.0"

// DownloaderOptions configures a Downloader.
type DownloaderOptions struct {
	// Proxy is used for both http and https requests when set.
	Proxy string
	// NoProxy lists hosts that bypass Proxy, in NO_PROXY syntax.
	NoProxy string
	// Progress receives a byte progress bar when non-nil.
	Progress io.Writer
	// TempDir holds in-flight downloads. Defaults to os.TempDir().
	TempDir   string
	UserAgent string
}

// Request is one archive to fetch.
type Request struct {
	URL      string
	Dest     string
	Library  string
	Version  string
	Platform string
}

// Downloader fetches archives over HTTP(S). It never retries and sets no
// request timeout; cancellation comes from the context only.
type Downloader struct {
	client    *http.Client
	userAgent string
	progress  io.Writer
	tempDir   string
	rename    func(oldpath, newpath string) error
}

// NewDownloader creates a new downloader
func NewDownloader(opts DownloaderOptions) (*Downloader, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if opts.Proxy != "" {
		if _, err := url.Parse(opts.Proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", opts.Proxy, err)
		}
		proxyFunc := (&httpproxy.Config{
			HTTPProxy:  opts.Proxy,
			HTTPSProxy: opts.Proxy,
			NoProxy:    opts.NoProxy,
		}).ProxyFunc()
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			return proxyFunc(req.URL)
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Downloader{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		progress:  opts.Progress,
		tempDir:   tempDir,
		rename:    os.Rename,
	}, nil
}

// Download fetches req.URL into a process-scoped temporary file and then
// moves it to req.Dest. Nothing is left at req.Dest unless the whole body
// arrived.
func (d *Downloader) Download(ctx context.Context, req Request) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrIncompleteDownload, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &NotAvailableError{Library: req.Library, Version: req.Version, Platform: req.Platform}
	case resp.StatusCode != http.StatusOK:
		return &StatusError{URL: req.URL, Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	if err := os.MkdirAll(d.tempDir, 0755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	tmpPath := filepath.Join(d.tempDir, fmt.Sprintf("%d-%s-%s", os.Getpid(), uuid.NewString(), filepath.Base(req.Dest)))
	tmpFile, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	var dst io.Writer = tmpFile
	if d.progress != nil {
		bar := d.newProgressBar(resp.ContentLength, filepath.Base(req.Dest))
		defer bar.Finish()
		dst = io.MultiWriter(tmpFile, bar)
	}

	written, err := io.Copy(dst, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", ErrIncompleteDownload, req.URL, err)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return fmt.Errorf("%w: %s: received %d of %d bytes", ErrIncompleteDownload, req.URL, written, resp.ContentLength)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := d.promote(tmpPath, req.Dest); err != nil {
		return err
	}

	cleanupNeeded = false
	return nil
}

// promote moves a finished download into place. A rename across
// filesystems falls back to copy and delete.
func (d *Downloader) promote(tmpPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	err := d.rename(tmpPath, destPath)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("rename temp file: %w", err)
	}

	if err := copyFile(tmpPath, destPath); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("copy temp file across devices: %w", err)
	}
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp file: %w", err)
	}
	return nil
}

func (d *Downloader) newProgressBar(size int64, name string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionSetDescription("downloading "+name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// copyFile copies src to dst, creating or truncating dst
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
