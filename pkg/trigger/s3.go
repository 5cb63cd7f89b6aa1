package trigger

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Source polls an S3 bucket prefix for trigger objects. Objects are
// consumed oldest-first by LastModified, each one fetched and deleted
// before the next is considered, mirroring DirSource semantics for
// deployments where producers cannot reach the server's filesystem.
type S3Source struct {
	client S3API
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Source returns an S3Source reading from bucket under prefix.
func NewS3Source(client S3API, bucket, prefix string, logger *slog.Logger) *S3Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With("component", "trigger", "bucket", bucket),
	}
}

// Poll consumes all pending trigger objects and returns their firings.
func (s *S3Source) Poll(ctx context.Context) ([]Firing, error) {
	objects, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	var firings []Firing
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return firings, err
		}
		key := aws.ToString(obj.Key)

		data, getErr := s.fetch(ctx, key)
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    obj.Key,
		}); err != nil {
			s.logger.Warn("trigger object delete failed", "key", key, "error", err)
		}
		if getErr != nil {
			s.logger.Warn("trigger object unreadable", "key", key, "error", getErr)
			continue
		}

		args, err := Decode(key, data)
		if err != nil {
			s.logger.Warn("trigger object undecodable", "key", key, "error", err)
			continue
		}
		firings = append(firings, Firing{Event: EventName(key), Args: args})
	}
	return firings, nil
}

// Close implements Source.
func (s *S3Source) Close() error {
	return nil
}

func (s *S3Source) list(ctx context.Context) ([]types.Object, error) {
	var objects []types.Object
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			if HasKnownExtension(aws.ToString(obj.Key)) {
				objects = append(objects, obj)
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	sort.Slice(objects, func(i, j int) bool {
		return aws.ToTime(objects[i].LastModified).Before(aws.ToTime(objects[j].LastModified))
	})
	return objects, nil
}

func (s *S3Source) fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
