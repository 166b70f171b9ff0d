// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/chickenai/breeds-gw/pkg/filestore"
)

func init() {
	filestore.Providers.Register("s3", func(ctx context.Context, params map[string]string) (filestore.FileStore, error) {
		return New(ctx, Options{
			Bucket:   params["bucket"],
			Region:   params["region"],
			Prefix:   params["prefix"],
			Endpoint: params["endpoint"],
		})
	})
}

// compile-time check
var _ filestore.FileStore = (*Store)(nil)

// Options configures the S3 backend.
type Options struct {
	Bucket   string // required
	Region   string // e.g. "us-east-1"
	Prefix   string // key prefix, e.g. "snapshots/"
	Endpoint string // custom endpoint for MinIO compatibility
}

// Store implements filestore.FileStore on S3 (or MinIO). Metadata travels
// as object user metadata on the content object.
//
// Object layout:
//
//	<prefix><snapshot_id>
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3-backed Store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 filestore: bucket is required")
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true // required for MinIO
		})
	}

	return &Store{
		client: s3.NewFromConfig(cfg, s3Opts...),
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}, nil
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// CreateFile uploads the photo with its metadata attached.
func (s *Store) CreateFile(ctx context.Context, file *filestore.File) error {
	if err := filestore.CheckID(file.ID); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(file.ID)),
		Body:        bytes.NewReader(file.Content),
		ContentType: aws.String(file.MimeType),
		Metadata: map[string]string{
			"sha256":     file.SHA256,
			"created-at": file.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// GetFile returns snapshot metadata (Content is nil).
func (s *Store) GetFile(ctx context.Context, fileID string) (*filestore.File, error) {
	if err := filestore.CheckID(fileID); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(fileID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
		}
		return nil, fmt.Errorf("head snapshot: %w", err)
	}

	created, _ := time.Parse(time.RFC3339Nano, out.Metadata["created-at"])
	return &filestore.File{
		ID:        fileID,
		MimeType:  aws.ToString(out.ContentType),
		Bytes:     aws.ToInt64(out.ContentLength),
		SHA256:    out.Metadata["sha256"],
		CreatedAt: created,
	}, nil
}

// GetFileContent returns the raw photo bytes from S3.
func (s *Store) GetFileContent(ctx context.Context, fileID string) ([]byte, error) {
	if err := filestore.CheckID(fileID); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(fileID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}
	return data, nil
}

// DeleteFile removes the snapshot object.
func (s *Store) DeleteFile(ctx context.Context, fileID string) error {
	// S3 deletes are idempotent, so check existence first.
	if _, err := s.GetFile(ctx, fileID); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(fileID)),
	})
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Close is a no-op for the S3 store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

// isNotFound checks whether the error indicates a missing S3 object.
func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	// Some S3-compatible services return a generic "NotFound" status.
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
