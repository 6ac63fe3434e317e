package generator

const (
	DefaultModel            = "gemini-2.5-flash-image-preview"
	ImageCompressionQuality = 75

	// PoseInstruction は 1 枚目のキャラクターを 2 枚目のポーズで描き直させる固定の指示文です。
	PoseInstruction = "Analyze the character in the first image and the pose in the second image. " +
		"Recreate the character from the first image performing the exact pose from the second image. " +
		"The background should be simple and not distract from the character."

	rejectionMessage = "生成APIが画像を返しませんでした。安全ポリシーによりブロックされた可能性があります"
)

// responseModalities は画像とテキストの両方を要求します。
var responseModalities = []string{"IMAGE", "TEXT"}

// RequestOptions はバックエンドへ渡す生成オプションです。
type RequestOptions struct {
	ResponseModalities []string
	Seed               *int64
}

// Config は PoseGenerator の設定です。
type Config struct {
	Model       string
	Instruction string
	Seed        *int64 // nil でランダム
	// CompressReference が true の場合、キャラクター画像を JPEG に圧縮してから送信します。
	CompressReference bool
}
