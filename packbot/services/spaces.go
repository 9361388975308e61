// services/spaces.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// SpacesSource serves catalog documents from a DigitalOcean Spaces (S3
// compatible) bucket.
type SpacesSource struct {
	client      *s3.Client
	bucket      string
	region      string
	CatalogRoot string
}

func NewSpacesSource(ctx context.Context, spacesKey, spacesSecret, region, bucket, endpoint, catalogRoot string) (*SpacesSource, error) {
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", region)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load Spaces config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &SpacesSource{
		client:      client,
		bucket:      bucket,
		region:      region,
		CatalogRoot: strings.Trim(catalogRoot, "/"),
	}, nil
}

// Open fetches name below the catalog root. A missing object matches
// fs.ErrNotExist.
func (s *SpacesSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.objectKey(name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%s/%s: %w", s.bucket, key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}

func (s *SpacesSource) objectKey(name string) string {
	if s.CatalogRoot == "" {
		return name
	}
	return path.Join(s.CatalogRoot, name)
}

func (s *SpacesSource) GetBucket() string {
	return s.bucket
}

func (s *SpacesSource) GetRegion() string {
	return s.region
}
