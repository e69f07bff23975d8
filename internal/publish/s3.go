package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bilgisen/staticd/internal/config"
)

// checksumKey is the user metadata key holding an object's SHA-256
const checksumKey = "sha256"

// S3Store is an ObjectStore backed by an S3-compatible bucket
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates a store for the R2_* settings in cfg. Static
// credentials are used when both keys are set; otherwise the default AWS
// credential chain applies.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	if cfg.R2Bucket == "" {
		return nil, errors.New("R2_BUCKET is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.R2Region),
	}
	if cfg.R2AccessKey != "" && cfg.R2SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.R2Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.R2Endpoint)
		}
		o.UsePathStyle = true // R2 and MinIO expect path-style addressing
	})

	return &S3Store{client: client, bucket: cfg.R2Bucket}, nil
}

// Checksum reads the SHA-256 stored in the object's metadata
func (s *S3Store) Checksum(ctx context.Context, key string) (string, bool, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}

	return out.Metadata[checksumKey], true, nil
}

// Put uploads body under obj.Key
func (s *S3Store) Put(ctx context.Context, obj Object, body io.Reader) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Key),
		Body:          body,
		ContentLength: aws.Int64(obj.Size),
		Metadata:      map[string]string{checksumKey: obj.SHA256},
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if obj.CacheControl != "" {
		input.CacheControl = aws.String(obj.CacheControl)
	}

	_, err := s.client.PutObject(ctx, input)
	return err
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
