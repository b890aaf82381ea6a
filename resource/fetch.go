package resource

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// httpFetcher streams a resource body over HTTP, resuming from an offset
// with a Range request. It is the engine's default byte source; a
// descriptor with a non-nil GetChunk callback bypasses it entirely.
type httpFetcher struct {
	client *http.Client
	uri    string
	resp   *http.Response
}

func (f *httpFetcher) open(ctx context.Context, offset int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.uri, nil)
	if err != nil {
		return fmt.Errorf("resource: building request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("resource: GET %s: %w", f.uri, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return fmt.Errorf("resource: GET %s: unexpected status %s", f.uri, resp.Status)
	}
	f.resp = resp
	return nil
}

// chunk reads up to len(buf) bytes. A 0, nil return means the caller should
// treat this as a retry-eligible empty read; io.EOF is reported as a normal
// (possibly final) read, not an error.
func (f *httpFetcher) chunk(buf []byte) (int, error) {
	n, err := f.resp.Body.Read(buf)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

func (f *httpFetcher) close() error {
	if f.resp == nil {
		return nil
	}
	err := f.resp.Body.Close()
	f.resp = nil
	return err
}
