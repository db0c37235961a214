// Package s3blob stores blobs in an S3-compatible bucket (AWS S3, MinIO).
// Objects are addressed path-style so that RefFromURL can read the bucket
// and key back from any URL the store handed out.
package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/adminconsole/internal/blob"
	"github.com/dmitrijs2005/adminconsole/internal/common"
)

// Config describes the bucket and the credentials used to reach it.
type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint is the base URL of the service, e.g. http://127.0.0.1:9000.
	Endpoint string
	Bucket   string
	// URLExpiry is the lifetime of presigned GET URLs. Zero yields plain
	// unsigned URLs, for buckets with public read access.
	URLExpiry time.Duration
}

// objectAPI is the part of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// presignAPI is the part of *s3.PresignClient the store uses.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Store struct {
	cfg     Config
	objects objectAPI
	presign presignAPI
}

// New builds the S3 clients from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", common.ErrValidation)
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return newStore(cfg, client, s3.NewPresignClient(client)), nil
}

func newStore(cfg Config, objects objectAPI, presign presignAPI) *Store {
	return &Store{cfg: cfg, objects: objects, presign: presign}
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (blob.Ref, error) {
	if key == "" {
		return blob.Ref{}, fmt.Errorf("%w: empty object key", common.ErrValidation)
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.objects.PutObject(ctx, in); err != nil {
		return blob.Ref{}, fmt.Errorf("put object %s: %w", key, err)
	}

	return blob.Ref{Bucket: s.cfg.Bucket, Key: key}, nil
}

func (s *Store) URL(ctx context.Context, ref blob.Ref) (string, error) {
	if s.cfg.URLExpiry <= 0 {
		return s.plainURL(ref)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	}, s3.WithPresignExpires(s.cfg.URLExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", ref, err)
	}

	return req.URL, nil
}

func (s *Store) plainURL(ref blob.Ref) (string, error) {
	base, err := url.Parse(s.cfg.Endpoint)
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("%w: endpoint %q cannot form object urls", common.ErrValidation, s.cfg.Endpoint)
	}
	return base.JoinPath(ref.Bucket, ref.Key).String(), nil
}

func (s *Store) Delete(ctx context.Context, ref blob.Ref) error {
	_, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil
		}
		return fmt.Errorf("delete object %s: %w", ref, err)
	}
	return nil
}

// RefFromURL reads bucket and key from the path of a path-style URL; the
// query string of presigned URLs is ignored.
func (s *Store) RefFromURL(rawURL string) (blob.Ref, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return blob.Ref{}, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return blob.Ref{}, fmt.Errorf("%w: not an object url: %q", common.ErrValidation, rawURL)
	}
	return blob.SplitPath(u.Path)
}
