package gemini

import (
	"context"

	"genai-studio/internal/imagefile"
)

type GeminiIface interface {
	// GenerateImage 文生图，返回可直接展示的图片引用（data URL 或 OSS URL）
	GenerateImage(ctx context.Context, prompt string) (string, error)
	// EditImage 图片编辑：原图 + 文本提示
	EditImage(ctx context.Context, prompt string, image imagefile.EncodedImage) (string, error)
}

// ImageArchiver 可选的结果归档（上传到 OSS）
type ImageArchiver interface {
	Archive(ctx context.Context, data []byte, mimeType string) (string, error)
}
