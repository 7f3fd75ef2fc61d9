package gemini

import (
	"fmt"

	"genai-studio/common"
	"genai-studio/internal/oss"
)

// NewGeminiClientFromConfig 从配置创建 Gemini 客户端
func NewGeminiClientFromConfig(cfg *common.Config) (*Client, error) {
	config := Config{
		APIKey:            cfg.GenAIAPIKey,
		BaseURL:           cfg.GenAIBaseURL,
		GenerateModelName: cfg.GenAIGenModelName,
		EditModelName:     cfg.GenAIEditModelName,
		Timeout:           cfg.GenAITimeout(),
	}

	// GENAI_IMAGE_FORMAT=url 时上传到 OSS，否则直接返回 data URL
	archiver, err := oss.NewArchiverFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}
	if archiver != nil {
		config.Archiver = archiver
	}

	client, err := NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

var _ GeminiIface = (*Client)(nil)
