package peertube_dl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/alanbriolat/peertube-dl/internal/httputil"
)

// TempSuffix is appended to the destination path while a transfer is in
// flight. The temporary file is renamed into place only on success and
// removed on every failure path.
const TempSuffix = ".part"

const copyChunkSize = 32 * 1024

// A TransferError is a non-success HTTP response while fetching a file.
type TransferError struct {
	StatusCode int
	Body       string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed with status %d: %s", e.StatusCode, e.Body)
}

type Download interface {
	// AddDownloadedBytes increases how many bytes have been successfully downloaded so far.
	AddDownloadedBytes(n int64)

	// AddExpectedBytes increases how many bytes are expected to be downloaded.
	AddExpectedBytes(n int64)

	// Cancel the Download, stopping any in-progress I/O activity.
	Cancel()

	// Close cleans up any resources associated with the Download.
	Close() error

	// Context is the cancellable context of this Download.
	Context() context.Context

	// Progress returns the downloaded and expected bytes of the download.
	// Expected is 0 when the remote side declared no content length.
	Progress() (downloaded int64, expected int64)

	// SaveURL makes a GET request to the URL and streams the body into the
	// named file under the target directory, via a temporary sibling file.
	SaveURL(filename string, url string) error
}

type download struct {
	ctx              context.Context
	cancel           context.CancelFunc
	httpClient       *http.Client
	progressCallback func(downloaded int64, expected int64)
	targetDir        string
	downloadedBytes  int64
	expectedBytes    int64
}

func (d *download) AddDownloadedBytes(n int64) {
	d.downloadedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) AddExpectedBytes(n int64) {
	d.expectedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) Cancel() {
	d.cancel()
}

func (d *download) Close() error {
	d.cancel()
	return nil
}

func (d *download) Context() context.Context {
	return d.ctx
}

func (d *download) Progress() (int64, int64) {
	return d.downloadedBytes, d.expectedBytes
}

func (d *download) SaveURL(filename string, url string) error {
	req, err := http.NewRequestWithContext(d.ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransferError{StatusCode: resp.StatusCode, Body: bodySnippet(body)}
	}
	if resp.ContentLength > 0 {
		d.AddExpectedBytes(resp.ContentLength)
	}
	return d.saveStream(filepath.Join(d.targetDir, filename), resp.Body)
}

// saveStream pumps the stream into <targetPath>.part and renames it into
// place. Each chunk is read, written, and counted before the next read, so
// back-pressure is implicit and progress is updated exactly once per chunk.
// Whatever goes wrong, the temporary file does not survive the error return.
func (d *download) saveStream(targetPath string, stream io.Reader) (err error) {
	tempPath := targetPath + TempSuffix
	// A stale temporary file from an earlier attempt is discarded, not resumed.
	_ = os.Remove(tempPath)
	if err = os.MkdirAll(filepath.Dir(targetPath), 0775); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tempPath)
		}
	}()

	reader := &contextReader{ctx: d.ctx, r: stream}
	buf := make([]byte, copyChunkSize)
	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				err = fmt.Errorf("failed to write file: %w", writeErr)
				return err
			}
			d.AddDownloadedBytes(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			err = fmt.Errorf("failed to save stream: %w", readErr)
			return err
		}
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to finalize file: %w", err)
	}
	if err = os.Rename(tempPath, targetPath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

type DownloadBuilder interface {
	Build() (Download, error)
	WithContext(ctx context.Context) DownloadBuilder
	WithHTTPClient(client *http.Client) DownloadBuilder
	WithProgressCallback(f func(downloaded int64, expected int64)) DownloadBuilder
	WithTargetDir(dir string) DownloadBuilder
}

type downloadBuilder struct {
	ctx              context.Context
	httpClient       *http.Client
	progressCallback func(int64, int64)
	targetDir        string
}

func NewDownloadBuilder() DownloadBuilder {
	return &downloadBuilder{
		ctx:       context.Background(),
		targetDir: ".",
	}
}

func (b *downloadBuilder) Build() (Download, error) {
	d := download{}
	d.ctx, d.cancel = context.WithCancel(b.ctx)
	d.httpClient = b.httpClient
	if d.httpClient == nil {
		d.httpClient = httputil.DefaultClient()
	}
	d.progressCallback = b.progressCallback
	d.targetDir = b.targetDir
	return &d, nil
}

func (b *downloadBuilder) WithContext(ctx context.Context) DownloadBuilder {
	b.ctx = ctx
	return b
}

func (b *downloadBuilder) WithHTTPClient(client *http.Client) DownloadBuilder {
	b.httpClient = client
	return b
}

func (b *downloadBuilder) WithProgressCallback(f func(int64, int64)) DownloadBuilder {
	b.progressCallback = f
	return b
}

func (b *downloadBuilder) WithTargetDir(dir string) DownloadBuilder {
	b.targetDir = dir
	return b
}

// DownloadFile streams url into destinationPath with default settings. It is
// the plain function form of the Download/DownloadBuilder machinery for
// callers that don't need progress reporting.
func DownloadFile(ctx context.Context, url string, destinationPath string) error {
	d, err := NewDownloadBuilder().
		WithContext(ctx).
		WithTargetDir(filepath.Dir(destinationPath)).
		Build()
	if err != nil {
		return err
	}
	defer d.Close()
	return d.SaveURL(filepath.Base(destinationPath), url)
}
