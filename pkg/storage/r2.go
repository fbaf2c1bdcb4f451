package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	internalConfig "github.com/vidora/vidora-backend/internal/config"
)

// R2Storage archives generation artifacts to a Cloudflare R2 bucket via the
// S3 API. Provider result URLs expire; the archive copy is what the gallery
// serves long-term.
type R2Storage struct {
	client     *s3.Client
	httpClient *http.Client
	bucket     string
	publicURL  string
}

func NewR2Storage(cfg *internalConfig.Config) (*R2Storage, error) {
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2.AccountID),
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(r2Resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2.AccessKeyID,
			cfg.R2.SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &R2Storage{
		client:     s3.NewFromConfig(awsCfg),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		bucket:     cfg.R2.Bucket,
		publicURL:  cfg.R2.PublicURL,
	}, nil
}

// ArchiveFromURL streams the object at sourceURL into the bucket under key
// and returns the public URL of the stored copy.
func (s *R2Storage) ArchiveFromURL(ctx context.Context, key, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	// S3 PutObject needs a seekable body or a known length; provider
	// responses do not always set Content-Length, so buffer.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read source: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return s.publicURL + "/" + key, nil
}

func (s *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
