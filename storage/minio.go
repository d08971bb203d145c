package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"LoudGate/config"
	"LoudGate/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio 初始化 MinIO 客户端，并确保目标存储桶存在
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 检查存储桶是否存在
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created artifact bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	return nil
}

// GetMinioClient 获取 MinIO 客户端实例
func GetMinioClient() *minio.Client {
	return minioClient
}

// contentTypeFor maps an output extension to its MIME type.
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".aac", ".mp4":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}

// UploadMaster uploads a mastered file to the artifact bucket and returns
// the object URL recorded on the job.
func UploadMaster(ctx context.Context, cfg *config.Config, localPath, objectName string) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}

	info, err := minioClient.FPutObject(ctx, cfg.MinioBucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", localPath, err)
	}

	logger.Info("uploaded mastered artifact",
		logger.String("object", objectName),
		logger.Int64("size", info.Size))

	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket, objectName), nil
}
