// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package output

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3PutObjectAPI is the part of the S3 client used by S3Sink.
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3Sink.
type S3Options struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint selects an S3-compatible service such as MinIO. Setting it
	// enables path-style addressing.
	Endpoint string
}

// S3Sink stores files as objects in an S3-compatible bucket.
type S3Sink struct {
	client S3PutObjectAPI
	bucket string
	prefix string
}

// NewS3Sink creates an S3 sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, opts S3Options) (*S3Sink, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewS3SinkWithClient(s3.NewFromConfig(cfg, s3opts...), opts.Bucket, opts.Prefix), nil
}

// NewS3SinkWithClient creates an S3 sink around an existing client.
func NewS3SinkWithClient(client S3PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ObjectKey returns the object key a file key is stored under.
func (d *S3Sink) ObjectKey(key string) string {
	if d.prefix == "" {
		return key
	}
	return path.Join(d.prefix, key)
}

// Put uploads data as the object for key.
func (d *S3Sink) Put(ctx context.Context, key string, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.ObjectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
