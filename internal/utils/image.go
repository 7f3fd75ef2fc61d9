package utils

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// 下载远程图片时的默认上限
const defaultDownloadLimit = 32 << 20

var downloadClient = &http.Client{
	Timeout: 30 * time.Second,
}

// DownloadImageFromURL 从 URL 下载图片，返回图片数据和 MIME 类型
func DownloadImageFromURL(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := downloadClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: status code %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, defaultDownloadLimit+1))
	if err != nil {
		return nil, "", err
	}
	if len(imageData) > defaultDownloadLimit {
		return nil, "", fmt.Errorf("failed to download image: larger than %d bytes", defaultDownloadLimit)
	}

	// 优先使用 Content-Type，缺失时根据扩展名推断
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = InferMimeTypeFromURL(url)
	}

	return imageData, mimeType, nil
}

// InferMimeTypeFromURL 从 URL 推断 MIME 类型（不区分大小写）
func InferMimeTypeFromURL(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	switch strings.ToLower(path.Ext(url)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// GenerateImagePath 生成图片路径：images/yyyy-MM-dd/
func GenerateImagePath(now time.Time) string {
	return fmt.Sprintf("images/%s/", now.Format("2006-01-02"))
}

// GenerateImageFileName 生成图片文件名：{uuid}_{timestamp}_{random}.ext
func GenerateImageFileName(now time.Time, mimeType string) string {
	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)

	return fmt.Sprintf("%s_%d_%x%s", uuid.New().String(), now.Unix(), randomBytes, GetExtensionFromMimeType(mimeType))
}

// GetExtensionFromMimeType 根据 MIME 类型获取文件扩展名（不区分大小写）
func GetExtensionFromMimeType(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// TruncateForLog 截断长字符串用于日志，避免打印过长内容（如 base64）。
// max 按字符计数，不会截断在多字节字符中间。
func TruncateForLog(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	keep, suffix := max, ""
	if max > 3 {
		keep, suffix = max-3, "..."
	}
	return s[:runeOffset(s, keep)] + suffix
}

// runeOffset 返回第 n 个字符开始处的字节偏移
func runeOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}
