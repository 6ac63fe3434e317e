package domain

import (
	"errors"
	"fmt"
)

// FailureKind は利用者に見せる失敗の分類です。
type FailureKind int

const (
	// KindPrecondition はキャラクター未登録やキャンバス取得不可など、API を呼ぶ前の失敗です。
	KindPrecondition FailureKind = iota + 1
	// KindBackendRejection は生成 API が画像を返さなかった場合です（安全フィルター等）。
	KindBackendRejection
	// KindTransport は通信・認証・応答形式の異常です。
	KindTransport
)

func (k FailureKind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindBackendRejection:
		return "backend_rejection"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

var (
	ErrPrecondition     = errors.New("precondition failed")
	ErrBackendRejection = errors.New("backend rejected the request")
	ErrTransport        = errors.New("transport failure")
)

// Failure は 1 回の生成リクエストに対する失敗を表します。
// errors.Is で種別ごとのセンチネルエラーと照合できます。
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Is(target error) bool {
	switch target {
	case ErrPrecondition:
		return f.Kind == KindPrecondition
	case ErrBackendRejection:
		return f.Kind == KindBackendRejection
	case ErrTransport:
		return f.Kind == KindTransport
	}
	return false
}

// NewPreconditionFailure は前提条件エラーを作成します。
func NewPreconditionFailure(format string, args ...any) *Failure {
	return &Failure{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

// NewRejectionFailure は画像が返されなかった場合のエラーを作成します。
func NewRejectionFailure(message string) *Failure {
	return &Failure{Kind: KindBackendRejection, Message: message}
}

// NewTransportFailure は原因のメッセージを末尾に付けた通信エラーを作成します。
func NewTransportFailure(prefix string, cause error) *Failure {
	msg := prefix
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", prefix, cause)
	}
	return &Failure{Kind: KindTransport, Message: msg, Err: cause}
}

// AsFailure は err を Failure として取り出します。Failure でなければ通信エラーとして包みます。
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return NewTransportFailure("予期しないエラーが発生しました", err)
}
