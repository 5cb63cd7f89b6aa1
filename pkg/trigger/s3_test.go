package trigger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects map[string]fakeObject
	deleted []string
}

type fakeObject struct {
	body     []byte
	modified time.Time
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for key, obj := range f.objects {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3SourcePollOldestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := &fakeS3{objects: map[string]fakeObject{
		"triggers/newer-event.json": {body: []byte(`{"n":2}`), modified: base.Add(time.Minute)},
		"triggers/older-event.json": {body: []byte(`{"n":1}`), modified: base},
		"triggers/ignored.txt":      {body: []byte("skip"), modified: base},
	}}

	src := NewS3Source(client, "bucket", "triggers/", nil)
	firings, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if len(firings) != 2 {
		t.Fatalf("got %d firings, want 2", len(firings))
	}
	if firings[0].Event != "older-event" || firings[1].Event != "newer-event" {
		t.Errorf("firing order = %s, %s; want oldest object first", firings[0].Event, firings[1].Event)
	}
	if firings[0].Args["n"] != float64(1) {
		t.Errorf("older args = %v, want n=1", firings[0].Args)
	}
	if len(client.deleted) != 2 {
		t.Errorf("deleted %d objects, want 2", len(client.deleted))
	}
	if _, ok := client.objects["triggers/ignored.txt"]; !ok {
		t.Error("objects without a known extension must be left alone")
	}
}

func TestS3SourceEmptyBucket(t *testing.T) {
	src := NewS3Source(&fakeS3{objects: map[string]fakeObject{}}, "bucket", "", nil)
	firings, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if firings != nil {
		t.Errorf("empty bucket should yield no firings, got %v", firings)
	}
}
