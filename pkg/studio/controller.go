package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/shouni/gemini-pose-studio/pkg/canvas"
	"github.com/shouni/gemini-pose-studio/pkg/domain"
	"github.com/shouni/gemini-pose-studio/pkg/generator"
	"github.com/shouni/gemini-pose-studio/pkg/imgutil"
	"github.com/shouni/gemini-pose-studio/pkg/source"
)

var (
	ErrGenerationInProgress = errors.New("generation already in progress")
	ErrUploadSuperseded     = errors.New("upload superseded by a newer upload")
)

const preconditionMessage = "キャラクター画像をアップロードし、ポーズを描いてから生成してください"

// Options は Controller の設定です。
type Options struct {
	// MaxReferenceEdge を超えるキャラクター画像は縮小されます（0 で無効）。
	MaxReferenceEdge int
}

// Controller はアップロード・キャンバス・生成の状態を管理するアプリケーション層です。
// 生成は同時に 1 つだけ実行され、アップロードは最後に開始したものが優先されます。
type Controller struct {
	generator generator.Generator
	loader    *source.Loader
	tracker   *canvas.Tracker
	maxEdge   int

	mu            sync.Mutex
	state         State
	uploadIssued  uint64
	uploadApplied uint64
	epoch         uint64 // キャラクターが差し替わるたびに進む
	inflight      chan struct{}
}

// New は依存関係を注入して Controller を初期化します。
func New(gen generator.Generator, loader *source.Loader, opts Options) (*Controller, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	return &Controller{
		generator: gen,
		loader:    loader,
		tracker:   canvas.NewTracker(canvas.NewSurface()),
		maxEdge:   opts.MaxReferenceEdge,
		state:     State{Phase: PhaseEmpty, Outcome: OutcomeNone},
	}, nil
}

// Canvas はポーズ描画用の Tracker を返します。
func (c *Controller) Canvas() *canvas.Tracker {
	return c.tracker
}

// Pose は現在のキャンバスのスナップショットを返します。
func (c *Controller) Pose() (domain.EncodedImage, error) {
	return canvas.Snapshot(c.tracker.Surface())
}

// State は現在の状態のコピーを返します。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UploadCharacter はアップロードされたストリームをキャラクター画像として登録します。
func (c *Controller) UploadCharacter(ctx context.Context, r io.Reader, declaredMIME string) (domain.CharacterInfo, error) {
	ticket := c.beginUpload()
	data, err := c.loader.ReadUpload(r)
	if err != nil {
		return domain.CharacterInfo{}, fmt.Errorf("アップロードの読み込みに失敗しました: %w", err)
	}
	return c.ingest(ctx, ticket, data, declaredMIME)
}

// UploadDataURL は data URL 形式のキャラクター画像を登録します。
func (c *Controller) UploadDataURL(ctx context.Context, dataURL string) (domain.CharacterInfo, error) {
	ticket := c.beginUpload()
	img, err := domain.ParseDataURL(dataURL)
	if err != nil {
		return domain.CharacterInfo{}, err
	}
	return c.ingest(ctx, ticket, img.Data, img.MimeType)
}

// LoadCharacterFromURL は http(s):// または gs:// の画像をキャラクター画像として登録します。
func (c *Controller) LoadCharacterFromURL(ctx context.Context, uri string) (domain.CharacterInfo, error) {
	ticket := c.beginUpload()
	data, err := c.loader.Fetch(ctx, uri)
	if err != nil {
		return domain.CharacterInfo{}, err
	}
	return c.ingest(ctx, ticket, data, "")
}

func (c *Controller) ingest(ctx context.Context, ticket uint64, data []byte, declaredMIME string) (domain.CharacterInfo, error) {
	img, info, err := imgutil.NormalizeUpload(data, declaredMIME, c.maxEdge)
	if err != nil {
		return domain.CharacterInfo{}, fmt.Errorf("キャラクター画像を読み込めませんでした: %w", err)
	}
	if !c.applyUpload(ticket, img, info) {
		slog.InfoContext(ctx, "より新しいアップロードがあるため破棄しました", "ticket", ticket)
		return info, ErrUploadSuperseded
	}
	slog.InfoContext(ctx, "キャラクター画像を登録しました",
		"mime", info.MimeType, "width", info.Width, "height", info.Height, "dominant_color", info.DominantColor)
	return info, nil
}

func (c *Controller) beginUpload() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploadIssued++
	return c.uploadIssued
}

// applyUpload は ticket が適用済みのものより新しい場合だけキャラクターを差し替えます。
// 生成結果とエラーはリセットされますが、描いたポーズはそのまま残ります。
func (c *Controller) applyUpload(ticket uint64, img domain.EncodedImage, info domain.CharacterInfo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket <= c.uploadApplied {
		return false
	}
	c.uploadApplied = ticket
	c.epoch++

	c.state.Character = &img
	c.state.CharacterInfo = &info
	if c.state.Phase != PhaseGenerating {
		c.state.Phase = PhaseCharacterLoaded
	}
	c.state.Outcome = OutcomeNone
	c.state.Result = nil
	c.state.Failure = nil
	return true
}

// Generate は生成を開始し、完了時に閉じられるチャネルを返します。
// 前提条件を満たさない場合は API を呼ばずに Failed にして失敗を返します。
// 生成中の再呼び出しは ErrGenerationInProgress で無視されます。
// 実行中の生成はキャンセルできないため、ctx のキャンセルは引き継ぎません。
func (c *Controller) Generate(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil {
		slog.WarnContext(ctx, "生成中のため新しいリクエストを無視しました")
		return nil, ErrGenerationInProgress
	}
	if c.state.Character == nil {
		f := domain.NewPreconditionFailure(preconditionMessage)
		c.failLocked(f)
		return nil, f
	}

	pose, err := canvas.Snapshot(c.tracker.Surface())
	if err != nil {
		f := domain.NewPreconditionFailure("キャンバスからポーズ画像を取得できませんでした: %v", err)
		c.failLocked(f)
		return nil, f
	}

	done := make(chan struct{})
	c.inflight = done
	c.state.Phase = PhaseGenerating
	c.state.Outcome = OutcomeNone
	c.state.Result = nil
	c.state.Failure = nil

	go c.run(context.WithoutCancel(ctx), c.epoch, *c.state.Character, pose, done)
	return done, nil
}

func (c *Controller) run(ctx context.Context, epoch uint64, character, pose domain.EncodedImage, done chan struct{}) {
	defer close(done)

	res, err := c.callGenerator(ctx, character, pose)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight = nil
	c.state.Phase = PhaseCharacterLoaded

	if epoch != c.epoch {
		slog.InfoContext(ctx, "生成中にキャラクターが差し替えられたため結果を破棄しました")
		return
	}
	if err == nil && (res == nil || res.Image == nil) {
		err = domain.NewRejectionFailure("生成APIが画像を返しませんでした")
	}
	if err != nil {
		c.failLocked(domain.AsFailure(err))
		return
	}
	c.state.Outcome = OutcomeSucceeded
	c.state.Result = res
}

// callGenerator は生成器のパニックも失敗として扱い、必ず操作可能な状態に戻れるようにします。
func (c *Controller) callGenerator(ctx context.Context, character, pose domain.EncodedImage) (res *domain.GenerationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "生成処理でパニックが発生しました", "panic", r)
			res, err = nil, domain.NewTransportFailure("画像の生成中に予期しないエラーが発生しました", fmt.Errorf("%v", r))
		}
	}()
	return c.generator.Generate(ctx, character, pose)
}

func (c *Controller) failLocked(f *domain.Failure) {
	c.state.Outcome = OutcomeFailed
	c.state.Result = nil
	c.state.Failure = f
}
