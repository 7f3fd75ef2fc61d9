package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genai-studio/common"
	"genai-studio/internal/imagefile"
	"genai-studio/internal/utils"

	"google.golang.org/genai"
)

const (
	defaultGenerateModel = "imagen-4.0-generate-001"
	defaultEditModel     = "gemini-2.5-flash-image"

	// 文生图固定参数
	generateImageCount  = 1
	generateOutputMIME  = "image/png"
	generateAspectRatio = "1:1"
)

var (
	ErrGeneration = errors.New("image generation failed")
	ErrEdit       = errors.New("image edit failed")
)

// modelsAPI genai.Models 中用到的方法，便于测试替换
type modelsAPI interface {
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client Gemini 客户端实现
type Client struct {
	models    modelsAPI
	genModel  string
	editModel string
	archiver  ImageArchiver
	timeout   time.Duration
}

// Config Gemini 客户端配置
type Config struct {
	APIKey            string // API Key
	BaseURL           string // 自定义 Base URL，如果为空则使用默认值
	GenerateModelName string // 文生图模型，例如：imagen-4.0-generate-001
	EditModelName     string // 图片编辑模型，例如：gemini-2.5-flash-image
	// 可选：生成结果上传到 OSS，为空时返回 data URL
	Archiver ImageArchiver
	// 单次请求超时时间，0 表示不设超时
	Timeout time.Duration
}

// NewClient 创建新的 Gemini 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newClient(client.Models, cfg), nil
}

func newClient(models modelsAPI, cfg Config) *Client {
	genModel := cfg.GenerateModelName
	if genModel == "" {
		genModel = defaultGenerateModel
	}
	editModel := cfg.EditModelName
	if editModel == "" {
		editModel = defaultEditModel
	}

	return &Client{
		models:    models,
		genModel:  genModel,
		editModel: editModel,
		archiver:  cfg.Archiver,
		timeout:   cfg.Timeout,
	}
}

// Close 关闭客户端（genai.Client 不需要显式关闭）
func (c *Client) Close() error {
	return nil
}

// withTimeout 配置了超时时间时为本次请求设置超时
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

// GenerateImage 文生图：固定生成 1 张 1:1 的 PNG 图片
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	common.WithFields(map[string]interface{}{
		"model":  c.genModel,
		"prompt": utils.TruncateForLog(prompt, 200),
	}).Debug("Starting image generation")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.models.GenerateImages(ctx, c.genModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: generateImageCount,
		OutputMIMEType: generateOutputMIME,
		AspectRatio:    generateAspectRatio,
	})
	if err != nil {
		common.WithError(err).WithField("model", c.genModel).Error("Failed to generate image from Gemini API")
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	if result == nil || len(result.GeneratedImages) == 0 {
		common.WithField("model", c.genModel).Error("No image generated by Gemini API")
		return "", fmt.Errorf("%w: no images in response", ErrGeneration)
	}
	generated := result.GeneratedImages[0]
	if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		return "", fmt.Errorf("%w: empty image in response", ErrGeneration)
	}

	common.WithFields(map[string]interface{}{
		"model": c.genModel,
		"size":  len(generated.Image.ImageBytes),
	}).Debug("Image generated successfully")

	ref, err := c.formatImageResult(ctx, generated.Image.ImageBytes, generateOutputMIME)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return ref, nil
}

// EditImage 图片编辑：按顺序发送原图和文本提示，要求返回图片
func (c *Client) EditImage(ctx context.Context, prompt string, image imagefile.EncodedImage) (string, error) {
	common.WithFields(map[string]interface{}{
		"model":     c.editModel,
		"prompt":    utils.TruncateForLog(prompt, 200),
		"mime_type": image.MediaType,
	}).Debug("Starting image editing")

	source, err := image.Bytes()
	if err != nil {
		return "", fmt.Errorf("%w: invalid source image: %w", ErrEdit, err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	parts := []*genai.Part{
		{
			InlineData: &genai.Blob{
				Data:     source,
				MIMEType: image.MediaType,
			},
		},
		genai.NewPartFromText(prompt),
	}

	result, err := c.models.GenerateContent(ctx, c.editModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityImage)},
		})
	if err != nil {
		common.WithError(err).WithField("model", c.editModel).Error("Failed to edit image from Gemini API")
		return "", fmt.Errorf("%w: %w", ErrEdit, err)
	}

	blob := firstInlineImage(result)
	if blob == nil {
		common.WithField("model", c.editModel).Error("No edited image data found in Gemini response")
		return "", fmt.Errorf("%w: no image data in response", ErrEdit)
	}

	// 使用接口返回的真实类型，缺失时才按 PNG 处理
	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	common.WithFields(map[string]interface{}{
		"model":     c.editModel,
		"mime_type": mimeType,
		"size":      len(blob.Data),
	}).Debug("Image edited successfully")

	ref, err := c.formatImageResult(ctx, blob.Data, mimeType)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEdit, err)
	}
	return ref, nil
}

// firstInlineImage 按顺序查找第一个带内联数据的 part
func firstInlineImage(result *genai.GenerateContentResponse) *genai.Blob {
	if result == nil || len(result.Candidates) == 0 {
		return nil
	}
	candidate := result.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil
	}
	for _, part := range candidate.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}

// formatImageResult 配置了 Archiver 时上传并返回 URL，否则返回 data URL
func (c *Client) formatImageResult(ctx context.Context, data []byte, mimeType string) (string, error) {
	if c.archiver == nil {
		return imagefile.DataURL(mimeType, data), nil
	}

	url, err := c.archiver.Archive(ctx, data, mimeType)
	if err != nil {
		common.WithError(err).Error("Failed to upload image to OSS")
		return "", err
	}
	common.WithField("url", url).Info("Image uploaded to OSS successfully")
	return url, nil
}
