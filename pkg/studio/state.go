package studio

import "github.com/shouni/gemini-pose-studio/pkg/domain"

// Phase はアプリケーションの状態です。Generating は常に一時的です。
type Phase string

const (
	PhaseEmpty           Phase = "empty"
	PhaseCharacterLoaded Phase = "character_loaded"
	PhaseGenerating      Phase = "generating"
)

// Outcome は直近の生成の結果です。
type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// State は Controller の状態のスナップショットです。
type State struct {
	Phase         Phase
	Outcome       Outcome
	Character     *domain.EncodedImage
	CharacterInfo *domain.CharacterInfo
	Result        *domain.GenerationResult
	Failure       *domain.Failure
}

// Generating は生成中かどうかを返します。
func (s State) Generating() bool {
	return s.Phase == PhaseGenerating
}
