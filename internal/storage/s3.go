package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner signs GET URLs for objects in a single bucket. Signing is local;
// no request reaches S3 until the URL is followed.
type Presigner struct {
	bucket string
	client *s3.PresignClient
}

// NewPresigner builds a Presigner for bucket. Path-style addressing is used
// when the config carries a custom endpoint.
func NewPresigner(cfg aws.Config, bucket string) *Presigner {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.BaseEndpoint != nil
	})
	return &Presigner{
		bucket: bucket,
		client: s3.NewPresignClient(client),
	}
}

func (p *Presigner) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return req.URL, nil
}
