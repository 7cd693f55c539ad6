// utils/archive_export.go
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveExporter writes season archive snapshots to R2/S3-compatible
// object storage as JSON documents.
type ArchiveExporter struct {
	client *s3.Client
	bucket string
}

// NewArchiveExporterFromEnv builds an exporter from the R2 environment
// variables. Returns (nil, nil) when no bucket is configured; snapshot
// export is optional.
func NewArchiveExporterFromEnv() (*ArchiveExporter, error) {
	bucket := os.Getenv("R2_BUCKET_NAME")
	if bucket == "" {
		return nil, nil
	}
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	return &ArchiveExporter{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// ExportArchive uploads the archive as a JSON object keyed by season name
// (e.g., "archives/weekly-season-2026-01-05.json").
func (e *ArchiveExporter) ExportArchive(seasonName string, archive any) error {
	payload, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archive: %w", err)
	}

	key := fmt.Sprintf("archives/%s.json", seasonName)
	_, err = e.client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive snapshot: %w", err)
	}
	return nil
}
