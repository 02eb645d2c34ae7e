package quarantine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains minimal configuration for the S3-backed store.
// Values fall back to the standard AWS config/credential chain.
type S3Config struct {
	// Region to use for requests, e.g. "us-east-1". If empty, AWS defaults apply.
	Region string
	// Profile selects a named shared config/credentials profile.
	Profile string
	// UsePathStyle forces path-style addressing (useful for S3-compatible providers).
	UsePathStyle bool
	// QuarantineBucket holds pending and rejected uploads.
	QuarantineBucket string
	// MediaBucket holds promoted, trusted media.
	MediaBucket string
}

// S3Store keeps the quarantine and working areas in two S3 buckets. Promote
// is a server-side copy followed by a delete: the media-bucket object only
// becomes visible once the copy has fully succeeded, so the scanner can
// couple it to the Approved transition.
type S3Store struct {
	client     *s3.Client
	quarantine string
	media      string
}

// NewS3Store creates an S3-backed store using the default AWS configuration
// chain, with optional overrides from S3Config.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.QuarantineBucket == "" || cfg.MediaBucket == "" {
		return nil, fmt.Errorf("both quarantine and media buckets are required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Store{
		client:     client,
		quarantine: cfg.QuarantineBucket,
		media:      cfg.MediaBucket,
	}, nil
}

func (s *S3Store) WriteQuarantine(ctx context.Context, id, filename string, data []byte) (string, error) {
	key := quarantineKey(id, filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.quarantine),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to write quarantine object: %w", err)
	}
	return "s3://" + s.quarantine + "/" + key, nil
}

func (s *S3Store) Promote(ctx context.Context, id, filename string) (string, error) {
	srcKey := quarantineKey(id, filename)
	destKey := id + "_" + SanitizeFilename(filename)

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.media),
		Key:        aws.String(destKey),
		CopySource: aws.String(s.quarantine + "/" + srcKey),
	})
	if err != nil {
		return "", fmt.Errorf("failed to promote object: %w", err)
	}

	// The promoted copy is already durable; a failed cleanup only leaves an
	// orphan in quarantine.
	_, _ = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.quarantine),
		Key:    aws.String(srcKey),
	})
	return "s3://" + s.media + "/" + destKey, nil
}

func (s *S3Store) ReadWorking(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := splitObjectRef(ref)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch working object %s: %w", ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read working object %s: %w", ref, err)
	}
	return data, nil
}

// splitObjectRef parses an "s3://bucket/key" reference.
func splitObjectRef(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 object reference: %s", ref)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 object reference: %s", ref)
	}
	return bucket, key, nil
}

func (s *S3Store) Discard(ctx context.Context, id, filename string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.quarantine),
		Key:    aws.String(quarantineKey(id, filename)),
	})
	if err != nil {
		return fmt.Errorf("failed to discard quarantine object: %w", err)
	}
	return nil
}

func quarantineKey(id, filename string) string {
	return id + "/" + SanitizeFilename(filename)
}
