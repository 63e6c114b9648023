// Package storage persists payment receipts in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// UploadResult is the stored object's key plus a presigned retrieval URL.
type UploadResult struct {
	Key string
	URL string
}

// ReceiptStore uploads receipts and mints presigned download URLs.
type ReceiptStore interface {
	UploadReceipt(ctx context.Context, orderID string, receipt any) (*UploadResult, error)
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// S3Store implements ReceiptStore on top of the AWS SDK.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Store connects to S3 (or any S3-compatible endpoint such as MinIO or
// LocalStack when endpoint is non-empty).
func NewS3Store(ctx context.Context, region, bucket, endpoint string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

const receiptURLTTL = 7 * 24 * time.Hour

// UploadReceipt stores the receipt as pretty-printed JSON and returns its key
// with a presigned GET URL valid for seven days.
func (s *S3Store) UploadReceipt(ctx context.Context, orderID string, receipt any) (*UploadResult, error) {
	key := fmt.Sprintf("receipts/%s-%d.json", orderID, time.Now().UnixMilli())

	body, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal receipt: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload receipt: %w", err)
	}

	url, err := s.PresignedURL(ctx, key, receiptURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign receipt url: %w", err)
	}

	slog.Info("Receipt uploaded", "key", key)
	return &UploadResult{Key: key, URL: url}, nil
}

func (s *S3Store) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
