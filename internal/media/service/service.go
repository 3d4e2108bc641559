package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gigmarket/internal/media"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type Service struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	presigner *s3.PresignClient
}

func NewService(cfg Config) *Service {
	return &Service{cfg: cfg, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// presignClient builds the S3 presign client on first use and reuses it. A
// failed build is retried on the next call.
func (s *Service) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presigner != nil {
		return s.presigner, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(s.cfg.Region)}
	if s.cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKey, s.cfg.SecretKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	s.presigner = s3.NewPresignClient(client)
	return s.presigner, nil
}

// ObjectKey is providers/{user}/{yyyy}/{mm}/{uuid}{ext}.
func ObjectKey(userID uuid.UUID, at time.Time, ext string) string {
	return fmt.Sprintf("providers/%s/%04d/%02d/%s%s", userID, at.Year(), int(at.Month()), uuid.New(), ext)
}

// UploadURL presigns a PUT for a provider image.
func (s *Service) UploadURL(ctx context.Context, userID uuid.UUID, contentType string) (*media.Upload, error) {
	ext, ok := media.Extension(contentType)
	if !ok {
		return nil, media.ErrUnsupportedType
	}
	if s.cfg.Bucket == "" {
		return nil, media.ErrNotConfigured
	}

	pc, err := s.presignClient(ctx)
	if err != nil {
		return nil, err
	}

	key := ObjectKey(userID, s.now().UTC(), ext)
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(media.UploadTTL))
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &media.Upload{
		Key:       key,
		URL:       req.URL,
		ExpiresIn: int(media.UploadTTL / time.Second),
	}, nil
}
