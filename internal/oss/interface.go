package oss

import (
	"context"
	"io"
)

// OSSIface OSS 客户端接口
type OSSIface interface {
	// UploadFileWithURL 上传文件并返回对象的访问 URL
	UploadFileWithURL(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error)
}
