package imagefile

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes 上传图片默认大小上限（4 MiB）
const MaxUploadBytes int64 = 4 << 20

var (
	ErrFileTooLarge    = errors.New("image file too large")
	ErrFileRead        = errors.New("failed to read image file")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// 允许上传的图片类型
var allowedTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
}

// EncodedImage 可直接用于传输的图片：base64 数据（不含 data URL 头）和 MIME 类型
type EncodedImage struct {
	Data      string
	MediaType string
}

// Bytes 解码出原始图片字节
func (e EncodedImage) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Data)
}

// DataURL 返回完整的 data URL
func (e EncodedImage) DataURL() string {
	return "data:" + e.MediaType + ";base64," + e.Data
}

// UploadedImage 用户上传的参考图片
type UploadedImage struct {
	EncodedImage
	// PreviewURL 完整 data URL，可直接用于 <img src>
	PreviewURL string
	Size       int64
}

// Encoder 将用户选择的文件转换为 UploadedImage
type Encoder struct {
	MaxBytes int64
}

// NewEncoder 创建编码器，maxBytes <= 0 时使用默认上限
func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}
	return &Encoder{MaxBytes: maxBytes}
}

// Encode 读取文件并编码。size 为客户端声明的大小（未知时传 -1），
// declaredType 为客户端声明的 MIME 类型。
func (e *Encoder) Encode(ctx context.Context, size int64, declaredType string, r io.Reader) (*UploadedImage, error) {
	if size > e.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, e.MaxBytes)
	}

	// 多读一个字节，用于发现声明大小与实际不符的情况
	data, err := io.ReadAll(io.LimitReader(&ctxReader{ctx: ctx, r: r}, e.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	if int64(len(data)) > e.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, e.MaxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrFileRead)
	}

	mediaType, err := resolveMediaType(declaredType, data)
	if err != nil {
		return nil, err
	}

	dataURL := DataURL(mediaType, data)
	// 拆分 data URL：逗号后为传输用的 base64 数据
	payload := dataURL[strings.IndexByte(dataURL, ',')+1:]

	return &UploadedImage{
		EncodedImage: EncodedImage{
			Data:      payload,
			MediaType: mediaType,
		},
		PreviewURL: dataURL,
		Size:       int64(len(data)),
	}, nil
}

// resolveMediaType 优先使用声明的类型，否则根据内容探测
func resolveMediaType(declaredType string, data []byte) (string, error) {
	if mt := NormalizeMediaType(declaredType); IsAllowedType(mt) {
		return mt, nil
	}

	detected := NormalizeMediaType(mimetype.Detect(data).String())
	if IsAllowedType(detected) {
		return detected, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, detected)
}

// NormalizeMediaType 去掉参数并统一大小写，image/jpg 归一为 image/jpeg
func NormalizeMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

// IsAllowedType 是否为允许上传的图片类型（PNG / JPEG / WEBP）
func IsAllowedType(mediaType string) bool {
	_, ok := allowedTypes[mediaType]
	return ok
}

// ctxReader 在每次读取前检查 context
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var errInvalidDataURL = errors.New("invalid data URL")

// DataURL 将图片字节编码为 data URL
func DataURL(mediaType string, data []byte) string {
	var buf bytes.Buffer
	buf.Grow(len(mediaType) + base64.StdEncoding.EncodedLen(len(data)) + 13)
	buf.WriteString("data:")
	buf.WriteString(mediaType)
	buf.WriteString(";base64,")
	buf.WriteString(base64.StdEncoding.EncodeToString(data))
	return buf.String()
}

// ParseDataURL 解析 base64 形式的 data URL
func ParseDataURL(s string) (EncodedImage, error) {
	if !strings.HasPrefix(s, "data:") {
		return EncodedImage{}, errInvalidDataURL
	}
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return EncodedImage{}, errInvalidDataURL
	}
	mediaType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return EncodedImage{}, fmt.Errorf("%w: %v", errInvalidDataURL, err)
	}
	return EncodedImage{Data: payload, MediaType: NormalizeMediaType(mediaType)}, nil
}
