package source

import (
	"context"
	"io"
	"strings"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// mockHTTPClient は httpkit.ClientInterface のうち FetchBytes だけを差し替えます。
type mockHTTPClient struct {
	httpkit.ClientInterface
	fetchFunc func(ctx context.Context, url string) ([]byte, error)
	calls     int
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	return m.fetchFunc(ctx, url)
}

// mockReader は remoteio.InputReader のうち Open だけを差し替えます。
type mockReader struct {
	remoteio.InputReader
	content string
	err     error
	opened  string
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	m.opened = uri
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.content)), nil
}
