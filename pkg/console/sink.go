package console

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultOutputFile is the transcript file written next to the game.
const DefaultOutputFile = "output.txt"

// FileSink writes the transcript to a file, replacing its contents.
type FileSink struct {
	Path string
}

func (s FileSink) Write(_ context.Context, transcript []byte) error {
	path := s.Path
	if path == "" {
		path = DefaultOutputFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, transcript, 0o644)
}

// S3API is the subset of the S3 client the sink uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config locates the bucket transcripts are uploaded to.
type S3Config struct {
	Bucket string
	// Prefix is prepended to the generated object key.
	Prefix string
	Region string
	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string
	// PathStyle addresses the bucket in the path instead of the host.
	PathStyle bool
}

// S3Sink uploads each transcript as a new object named by the time it was
// written.
type S3Sink struct {
	client S3API
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Sink creates a sink using client.
func NewS3Sink(client S3API, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// NewS3Client builds an S3 client from cfg. Credentials are read from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
		Credentials:  aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, fmt.Errorf("console: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "Environment",
	}, nil
}

// Key returns the object key used for a transcript written at t.
func (s *S3Sink) Key(t time.Time) string {
	return s.prefix + "output-" + t.UTC().Format("20060102T150405.000Z") + ".txt"
}

func (s *S3Sink) Write(ctx context.Context, transcript []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(s.now())),
		Body:        bytes.NewReader(transcript),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("console: s3 upload failed: %w", err)
	}
	return nil
}
