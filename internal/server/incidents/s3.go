package incidents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/blogauth/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) putObjecter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type putObjecter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Reporter writes each incident as a JSON object into a bucket.
type S3Reporter struct {
	client putObjecter
	bucket string
}

// NewS3Reporter builds an S3 client from the S3 settings in config. A
// non-empty S3BaseEndpoint targets an S3-compatible server such as MinIO.
func NewS3Reporter(ctx context.Context, c *sc.Config) (*S3Reporter, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Reporter{client: client, bucket: c.S3Bucket}, nil
}

// ObjectKey returns the key an incident is stored under.
func ObjectKey(in Incident) string {
	d := in.DetectedAt.UTC()
	return fmt.Sprintf("incidents/%d/%02d/%02d/%s-%v.json", d.Year(), d.Month(), d.Day(), in.Family, uuid.New())
}

func (r *S3Reporter) Report(ctx context.Context, in Incident) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(ObjectKey(in)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put error: %w", err)
	}
	return nil
}

// New returns an S3Reporter when a bucket is configured, else a NopReporter.
func New(ctx context.Context, c *sc.Config) (Reporter, error) {
	if c.S3Bucket == "" {
		return NopReporter{}, nil
	}
	return NewS3Reporter(ctx, c)
}
