package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	appconfig "templora_backend/pkg/config"
)

var (
	s3Client   *s3.Client
	bucketName string
	cdnBase    string
)

// InitStorage builds the R2 client once at startup.
func InitStorage(cfg appconfig.StorageConfig) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %v", err)
	}

	s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
		o.UsePathStyle = true
		o.Region = cfg.Region
	})
	bucketName = cfg.Bucket
	cdnBase = "https://cdn.templora.dev"
	return nil
}

type UploadResult struct {
	URL      string
	ObjectID string
}

// objectKey builds an organized, URL-safe path under the seller's folder.
func objectKey(username, templateSlug, kind, filename string) string {
	safeUsername := slug.Make(username)
	safeTemplateSlug := slug.Make(templateSlug)

	ext := filepath.Ext(filename)
	uniqueID := fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.New().String())

	return filepath.Join("users", safeUsername, "templates", safeTemplateSlug, kind, uniqueID+ext)
}

// UploadPreviewImage yükler ve CDN URL'ini döndürür
func UploadPreviewImage(username, templateSlug string, data *bytes.Buffer, contentType, filename string) (UploadResult, error) {
	key := objectKey(username, templateSlug, "previews", filename)

	_, err := s3Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("could not upload file to R2: %v", err)
	}

	return UploadResult{
		URL:      fmt.Sprintf("%s/%s", cdnBase, key),
		ObjectID: key,
	}, nil
}

// UploadArchive streams the template's downloadable archive to R2.
func UploadArchive(username, templateSlug string, file *multipart.FileHeader) (UploadResult, error) {
	key := objectKey(username, templateSlug, "archives", file.Filename)

	src, err := file.Open()
	if err != nil {
		return UploadResult{}, fmt.Errorf("could not open file: %v", err)
	}
	defer src.Close()

	_, err = s3Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(key),
		Body:        src,
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("could not upload file to R2: %v", err)
	}

	return UploadResult{
		URL:      fmt.Sprintf("%s/%s", cdnBase, key),
		ObjectID: key,
	}, nil
}

func DeleteObject(fullURL string) error {
	key := getObjectKeyFromURL(fullURL)

	_, err := s3Client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("could not delete file from R2: %v", err)
	}
	return nil
}

// GetFileNameFromURL sadece dosya adını döndürür
func GetFileNameFromURL(url string) string {
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

func getObjectKeyFromURL(url string) string {
	return strings.TrimPrefix(url, cdnBase+"/")
}
