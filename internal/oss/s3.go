package oss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"genai-studio/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// 预签名上传的超时时间
const presignedUploadTimeout = 60 * time.Second

// S3Client S3 兼容的 OSS 客户端实现
type S3Client struct {
	client     *s3.Client
	httpClient *http.Client
	endpoint   string
	region     string
}

// S3Config S3 客户端配置
type S3Config struct {
	Endpoint  string // 服务端点，例如：s3.amazonaws.com 或 oss-cn-hangzhou.aliyuncs.com
	Region    string // 区域，例如：us-east-1
	AccessKey string
	SecretKey string
}

// NewS3Client 创建新的 S3 客户端
func NewS3Client(cfg S3Config) (*S3Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	// 未提供静态凭证时沿用默认凭证链
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String("https://" + cfg.Endpoint)
		}
	})

	return &S3Client{
		client:     client,
		httpClient: &http.Client{Timeout: presignedUploadTimeout},
		endpoint:   cfg.Endpoint,
		region:     cfg.Region,
	}, nil
}

// UploadFileWithURL 上传文件并返回对象的公开 URL（不带签名）
func (c *S3Client) UploadFileWithURL(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	// 阿里云 OSS 不支持 SDK PutObject 的 aws-chunked 编码，改用预签名 PUT
	if strings.Contains(c.endpoint, ".aliyuncs.com") {
		err = c.presignedPut(ctx, bucket, key, body, contentType)
	} else {
		_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
		})
	}
	if err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"bucket": bucket,
			"key":    key,
			"size":   len(body),
		}).Error("Failed to upload file to OSS")
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	common.WithFields(map[string]interface{}{
		"bucket": bucket,
		"key":    key,
		"size":   len(body),
	}).Info("File uploaded to OSS successfully")

	return c.buildObjectURL(bucket, key), nil
}

// presignedPut 通过预签名 URL + 原生 HTTP PUT 上传
func (c *S3Client) presignedPut(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	reqCtx, cancel := context.WithTimeout(ctx, presignedUploadTimeout)
	defer cancel()

	presigned, err := s3.NewPresignClient(c.client).PresignPutObject(reqCtx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to presign PUT URL: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, presigned.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for k, v := range presigned.SignedHeader {
		for _, hv := range v {
			req.Header.Add(k, hv)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload file via presigned PUT: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("OSS upload failed: status code %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// buildObjectURL 构造对象的公开 URL
func (c *S3Client) buildObjectURL(bucket, key string) string {
	if c.endpoint != "" {
		return fmt.Sprintf("https://%s.%s/%s", bucket, c.endpoint, key)
	}
	if c.region != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, c.region, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}
