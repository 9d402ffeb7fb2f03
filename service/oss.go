package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"time"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var MinioClient *minio.Client

// InitMinIO connects object storage; called from main.
func InitMinIO() {
	cfg := config.AppConfig.MinIO
	var err error
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatalf("MinIO init failed: %v", err)
	}
	log.Println("MinIO connected")
}

// UploadVideo uploads a finished composition and returns a presigned URL.
func UploadVideo(localPath, jobID string) (string, error) {
	ctx := context.Background()
	cfg := config.AppConfig.MinIO
	bucketName := cfg.Bucket

	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return "", fmt.Errorf("bucket check failed: %w", err)
	}
	if !exists {
		if err := MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("bucket create failed: %w", err)
		}
		log.Printf("bucket %q created", bucketName)
	}

	objectName := fmt.Sprintf("jobs/%s/%s", jobID, filepath.Base(localPath))
	contentType := "video/mp4"
	if filepath.Ext(localPath) == ".png" {
		contentType = "image/png"
	}

	_, err = MinioClient.FPutObject(ctx, bucketName, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("MinIO upload failed: %w", err)
	}

	expiry := 72 * time.Hour
	reqParams := make(url.Values)
	presignedURL, err := MinioClient.PresignedGetObject(ctx, bucketName, objectName, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("presign failed: %w", err)
	}

	log.Printf("uploaded %s", objectName)
	return presignedURL.String(), nil
}
