// Package archive uploads reconciled aggregate snapshots to object storage.
// Archiving is strictly best-effort: a failed upload is logged by the caller
// and never blocks or reorders synchronization.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
)

// Archiver stores a snapshot of a reconciled aggregate.
type Archiver interface {
	Archive(ctx context.Context, shoot *models.Shoot) error
}

// Noop is used when no archive bucket is configured.
type Noop struct{}

func (Noop) Archive(ctx context.Context, shoot *models.Shoot) error { return nil }

// S3Options configures the S3 archiver. BaseEndpoint supports MinIO-style
// self-hosted deployments.
type S3Options struct {
	Region       string
	Bucket       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// S3Archiver writes one JSON object per aggregate at
// shoots/{orgID}/{shootID}.json, overwriting the previous snapshot.
type S3Archiver struct {
	client *s3.Client
	bucket string
}

func NewS3Archiver(ctx context.Context, opts S3Options) (*S3Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{client: client, bucket: opts.Bucket}, nil
}

func snapshotKey(shoot *models.Shoot) string {
	return fmt.Sprintf("shoots/%s/%s.json", shoot.OrgID, shoot.ID)
}

func (a *S3Archiver) Archive(ctx context.Context, shoot *models.Shoot) error {
	body, err := json.Marshal(shoot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	key := snapshotKey(shoot)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}
