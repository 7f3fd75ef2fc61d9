package oss

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"genai-studio/common"
	"genai-studio/internal/utils"
)

// Archiver 将生成的图片上传到 OSS，并返回可访问的 URL
type Archiver struct {
	client OSSIface
	bucket string
	now    func() time.Time
}

// NewArchiver 创建 Archiver
func NewArchiver(client OSSIface, bucket string) *Archiver {
	return &Archiver{
		client: client,
		bucket: bucket,
		now:    time.Now,
	}
}

// Archive 上传图片，对象键为 images/yyyy-MM-dd/{uuid}_{timestamp}_{random}.ext
func (a *Archiver) Archive(ctx context.Context, data []byte, mimeType string) (string, error) {
	now := a.now()
	key := utils.GenerateImagePath(now) + utils.GenerateImageFileName(now, mimeType)

	common.WithFields(map[string]interface{}{
		"bucket":       a.bucket,
		"key":          key,
		"content_type": mimeType,
		"size":         len(data),
	}).Debug("Archiving image to OSS")

	url, err := a.client.UploadFileWithURL(ctx, a.bucket, key, bytes.NewReader(data), mimeType)
	if err != nil {
		return "", fmt.Errorf("failed to archive image: %w", err)
	}
	return url, nil
}
