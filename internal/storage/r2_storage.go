package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ssnlakshya/mela/internal/config"
)

// ErrInvalidKey rejects object keys that could escape the bucket namespace.
var ErrInvalidKey = errors.New("invalid object key")

// IMediaStorage defines the interface for bucket operations. The bucket is
// Cloudflare R2, driven through its S3-compatible endpoint.
type IMediaStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Fetch(ctx context.Context, key string) (io.ReadCloser, string, int64, error)
}

// r2Storage implements IMediaStorage.
type r2Storage struct {
	cfg      *config.Config
	s3Client *s3.Client
}

// NewR2Storage creates a new media storage service against the R2 endpoint.
func NewR2Storage(cfg *config.Config) (IMediaStorage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		// R2 ignores the region but the SDK requires one.
		aws_config.WithRegion("auto"),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2AccessKeyID,
			cfg.R2SecretAccessKey,
			"", // session token
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
	})

	return &r2Storage{cfg: cfg, s3Client: s3Client}, nil
}

// Upload writes the object and returns its public URL.
func (s *r2Storage) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.R2Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return strings.TrimSuffix(s.cfg.R2PublicBaseURL, "/") + "/" + key, nil
}

// Fetch streams the object. The caller owns the returned body and must close
// it. Content type and length come from the object metadata; length is -1
// when the store did not report one.
func (s *r2Storage) Fetch(ctx context.Context, key string) (io.ReadCloser, string, int64, error) {
	if err := ValidateKey(key); err != nil {
		return nil, "", 0, err
	}

	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.R2Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to fetch object %s: %w", key, err)
	}

	contentType := "application/octet-stream"
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	length := int64(-1)
	if out.ContentLength != nil {
		length = *out.ContentLength
	}

	return out.Body, contentType, length, nil
}

// ValidateKey rejects empty keys, absolute paths, and any key containing a
// ".." segment. Keys are forwarded to the bucket verbatim, so traversal
// sequences must never pass.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

var unsafeFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFileName replaces every character outside [a-zA-Z0-9._-] with an
// underscore. The dot survives so extensions stay intact; traversal is not a
// concern here because the result is embedded as a single path segment.
func SanitizeFileName(name string) string {
	return unsafeFileNameChars.ReplaceAllString(name, "_")
}

// BuildObjectKey places an uploaded file under the given folder with a
// random prefix so two uploads of the same filename never collide.
func BuildObjectKey(folder, filename string) (string, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		folder = "uploads"
	}
	if err := ValidateKey(folder); err != nil {
		return "", err
	}

	safeName := SanitizeFileName(filename)
	if safeName == "" || strings.Trim(safeName, "_") == "" {
		return "", fmt.Errorf("%w: unusable filename %q", ErrInvalidKey, filename)
	}

	return fmt.Sprintf("%s/%s-%s", folder, uuid.NewString(), safeName), nil
}
