package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

var (
	ErrTooLarge         = errors.New("image exceeds the upload size limit")
	ErrUnsupportedURI   = errors.New("unsupported image URI")
	ErrRemoteIODisabled = errors.New("gs:// reader is not configured")
)

// Loader はアップロードやリモート URI からキャラクター画像のバイト列を取得します。
type Loader struct {
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
	maxBytes   int64
	checkURL   func(rawURL string) error
}

// NewLoader は依存関係を注入して Loader を初期化します。
// reader は nil を許容し、その場合 gs:// は利用できません。
func NewLoader(httpClient httpkit.ClientInterface, reader remoteio.InputReader, maxBytes int64) *Loader {
	return &Loader{
		httpClient: httpClient,
		reader:     reader,
		maxBytes:   maxBytes,
		checkURL:   checkPublicURL,
	}
}

// ReadUpload はアップロードされたストリームを上限付きで読み込みます。
func (l *Loader) ReadUpload(r io.Reader) ([]byte, error) {
	if l.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, l.maxBytes)
	}
	return data, nil
}

// Fetch は http(s):// または gs:// の URI から画像データを取得します。
func (l *Loader) Fetch(ctx context.Context, uri string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, "gs://"):
		return l.readRemote(ctx, uri)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		if err := l.checkURL(uri); err != nil {
			slog.WarnContext(ctx, "SSRFの可能性がある、または不正なURLをブロックしました", "url", uri, "error", err)
			return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
		}
		if l.httpClient == nil {
			return nil, fmt.Errorf("%w: http client is not configured", ErrUnsupportedURI)
		}
		data, err := l.httpClient.FetchBytes(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("参照画像のダウンロードに失敗しました: %w", err)
		}
		return l.limit(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURI, uri)
	}
}

func (l *Loader) readRemote(ctx context.Context, uri string) ([]byte, error) {
	if l.reader == nil {
		return nil, ErrRemoteIODisabled
	}
	rc, err := l.reader.Open(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("参照画像のオープンに失敗しました: %w", err)
	}
	defer rc.Close()
	return l.ReadUpload(rc)
}

func (l *Loader) limit(data []byte) ([]byte, error) {
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, l.maxBytes)
	}
	return data, nil
}
