package oss

import (
	"genai-studio/common"
)

// NewOSSClientFromConfig 从配置创建 OSS 客户端
func NewOSSClientFromConfig(cfg *common.Config) (OSSIface, error) {
	return NewS3Client(S3Config{
		Endpoint:  cfg.OSSEndpoint,
		Region:    cfg.OSSRegion,
		AccessKey: cfg.OSSAccessKey,
		SecretKey: cfg.OSSSecretKey,
	})
}

// NewArchiverFromConfig 未启用 url 输出格式时返回 nil
func NewArchiverFromConfig(cfg *common.Config) (*Archiver, error) {
	if !cfg.ArchiveEnabled() {
		return nil, nil
	}
	client, err := NewOSSClientFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewArchiver(client, cfg.OSSBucket), nil
}
