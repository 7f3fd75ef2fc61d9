package tools

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"genai-studio/common"
	"genai-studio/internal/genai/gemini"
	"genai-studio/internal/imagefile"
	"genai-studio/internal/utils"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	GenerateImageToolName = "studio_generate_image"
	EditImageToolName     = "studio_edit_image"
)

// StudioTools 将生成/编辑客户端暴露为 MCP tools
type StudioTools struct {
	client  gemini.GeminiIface
	encoder *imagefile.Encoder
	// fetch 下载远程图片，测试时替换
	fetch func(ctx context.Context, url string) ([]byte, string, error)
}

// NewStudioTools 创建 tools，encoder 用于校验待编辑图片的大小和类型
func NewStudioTools(client gemini.GeminiIface, encoder *imagefile.Encoder) *StudioTools {
	if encoder == nil {
		encoder = imagefile.NewEncoder(imagefile.MaxUploadBytes)
	}
	return &StudioTools{
		client:  client,
		encoder: encoder,
		fetch:   utils.DownloadImageFromURL,
	}
}

// RegisterStudioTools 注册图片生成和编辑的 MCP tools
func RegisterStudioTools(s *server.MCPServer, client gemini.GeminiIface, encoder *imagefile.Encoder) error {
	if client == nil {
		return fmt.Errorf("image client is required")
	}
	t := NewStudioTools(client, encoder)

	generateImageTool := mcp.NewTool(
		GenerateImageToolName,
		mcp.WithDescription("Generate a 1:1 PNG image from a text prompt. Returns the image as a data URI, or an object URL when archiving is enabled."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Text prompt describing the image to generate"),
		),
	)
	s.AddTool(generateImageTool, t.handleGenerate)

	editImageTool := mcp.NewTool(
		EditImageToolName,
		mcp.WithDescription("Edit a reference image according to a text prompt. Returns the edited image as a data URI, or an object URL when archiving is enabled."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Text prompt describing how to edit the image"),
		),
		mcp.WithString("image",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("Data URI or http(s) URL of a PNG, JPEG or WEBP image, at most %dMB", t.encoder.MaxBytes>>20)),
		),
	)
	s.AddTool(editImageTool, t.handleEdit)

	return nil
}

func (t *StudioTools) handleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, errResult := requirePrompt(req)
	if errResult != nil {
		return errResult, nil
	}

	ref, err := t.client.GenerateImage(ctx, prompt)
	if err != nil {
		common.WithError(err).WithField("tool", GenerateImageToolName).Error("Tool call failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate image: %v", err)), nil
	}
	return mcp.NewToolResultText(ref), nil
}

func (t *StudioTools) handleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, errResult := requirePrompt(req)
	if errResult != nil {
		return errResult, nil
	}

	image, err := req.RequireString("image")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("image parameter is required: %v", err)), nil
	}

	source, err := t.loadImage(ctx, strings.TrimSpace(image))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid image: %v", err)), nil
	}

	ref, err := t.client.EditImage(ctx, prompt, source)
	if err != nil {
		common.WithError(err).WithField("tool", EditImageToolName).Error("Tool call failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to edit image: %v", err)), nil
	}
	return mcp.NewToolResultText(ref), nil
}

func requirePrompt(req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return "", mcp.NewToolResultError(fmt.Sprintf("prompt parameter is required: %v", err))
	}
	if strings.TrimSpace(prompt) == "" {
		return "", mcp.NewToolResultError("prompt must not be blank")
	}
	return prompt, nil
}

// loadImage 解析 data URI 或下载远程图片，再按上传规则校验
func (t *StudioTools) loadImage(ctx context.Context, image string) (imagefile.EncodedImage, error) {
	var (
		data     []byte
		mimeType string
	)
	switch {
	case strings.HasPrefix(image, "data:"):
		parsed, err := imagefile.ParseDataURL(image)
		if err != nil {
			return imagefile.EncodedImage{}, err
		}
		if data, err = parsed.Bytes(); err != nil {
			return imagefile.EncodedImage{}, err
		}
		mimeType = parsed.MediaType
	case strings.HasPrefix(image, "http://"), strings.HasPrefix(image, "https://"):
		var err error
		if data, mimeType, err = t.fetch(ctx, image); err != nil {
			return imagefile.EncodedImage{}, err
		}
	default:
		return imagefile.EncodedImage{}, fmt.Errorf("expected a data URI or http(s) URL")
	}

	uploaded, err := t.encoder.Encode(ctx, int64(len(data)), mimeType, bytes.NewReader(data))
	if err != nil {
		return imagefile.EncodedImage{}, err
	}
	return uploaded.EncodedImage, nil
}
