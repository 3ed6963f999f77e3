package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/rusenback/idlemon/internal/model"
)

// S3Config selects the bucket holding the state objects
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional, for S3-compatible storage (MinIO, OVH, ...)
	Prefix   string
}

// objectAPI is the subset of the S3 client the store needs
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps one JSON object per key and uses the object ETag for
// conditional writes (If-Match on update, If-None-Match on create).
type S3Store struct {
	api    objectAPI
	bucket string
	prefix string
}

// NewS3Store loads credentials from the default AWS chain
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return newS3Store(s3.NewFromConfig(awsCfg, opts...), cfg), nil
}

func newS3Store(api objectAPI, cfg S3Config) *S3Store {
	return &S3Store{api: api, bucket: cfg.Bucket, prefix: cfg.Prefix}
}

func (s *S3Store) objectKey(key string) string {
	return path.Join(s.prefix, "monitor-state", key+".json")
}

func (s *S3Store) Load(ctx context.Context, key string) (model.MonitoringState, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) || httpStatus(err) == http.StatusNotFound {
			return model.MonitoringState{}, ErrNotFound
		}
		return model.MonitoringState{}, fmt.Errorf("get monitoring state %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return model.MonitoringState{}, fmt.Errorf("read monitoring state %q: %w", key, err)
	}

	var st model.MonitoringState
	if err := json.Unmarshal(data, &st); err != nil {
		return model.MonitoringState{}, fmt.Errorf("decode monitoring state %q: %w", key, err)
	}
	st.Version = aws.ToString(out.ETag)
	return st, nil
}

func (s *S3Store) Save(ctx context.Context, key string, state *model.MonitoringState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode monitoring state: %w", err)
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if state.Version == "" {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = aws.String(state.Version)
	}

	out, err := s.api.PutObject(ctx, in)
	if err != nil {
		switch httpStatus(err) {
		case http.StatusPreconditionFailed, http.StatusConflict:
			return ErrConflict
		}
		return fmt.Errorf("put monitoring state %q: %w", key, err)
	}
	state.Version = aws.ToString(out.ETag)
	return nil
}

func httpStatus(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
