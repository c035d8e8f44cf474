package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type mockUploader struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (m *mockUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.inputs = append(m.inputs, input)
	m.bodies = append(m.bodies, string(b))
	return &manager.UploadOutput{}, nil
}

func TestNewS3Archiver_RequiresBucket(t *testing.T) {
	if _, err := NewS3Archiver(context.Background(), S3Config{}); !errors.Is(err, ErrEmptyS3BucketName) {
		t.Fatalf("expected ErrEmptyS3BucketName, got %v", err)
	}
}

func TestPut_UsesPrefixedKey(t *testing.T) {
	up := &mockUploader{}
	a := newS3Archiver(S3Config{Bucket: "transcripts", Prefix: "/prod/"}, up)

	if err := a.Put(context.Background(), "S1/transcript.json", []byte(`{"ok":true}`), "application/json"); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if len(up.inputs) != 1 {
		t.Fatalf("expected one upload, got %d", len(up.inputs))
	}
	in := up.inputs[0]
	if aws.ToString(in.Bucket) != "transcripts" || aws.ToString(in.Key) != "prod/S1/transcript.json" {
		t.Fatalf("unexpected destination: %s/%s", aws.ToString(in.Bucket), aws.ToString(in.Key))
	}
	if aws.ToString(in.ContentType) != "application/json" || up.bodies[0] != `{"ok":true}` {
		t.Fatalf("unexpected object: %s %s", aws.ToString(in.ContentType), up.bodies[0])
	}
}

func TestPut_NoPrefix(t *testing.T) {
	up := &mockUploader{}
	a := newS3Archiver(S3Config{Bucket: "b"}, up)
	if err := a.Put(context.Background(), "/S1/transcript.txt", []byte("x"), "text/plain"); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if got := aws.ToString(up.inputs[0].Key); got != "S1/transcript.txt" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestPut_WrapsUploadError(t *testing.T) {
	boom := errors.New("access denied")
	a := newS3Archiver(S3Config{Bucket: "b"}, &mockUploader{err: boom})
	if err := a.Put(context.Background(), "k", nil, "text/plain"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upload error, got %v", err)
	}
}
