package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	headErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if aws.ToInt64(in.ContentLength) != int64(len(data)) {
		return nil, errors.New("content length mismatch")
	}
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func TestS3_PutPrefixesKeyAndReportsProgress(t *testing.T) {
	fake := newFakeS3()
	s := NewS3WithClient(fake, "bucket", "/users/42/")

	var last float64
	body := domain.BytesSource("%PDF-1.4 hello")
	rc, _ := body.Open()
	res, err := s.Put(context.Background(), domain.PutRequest{
		Key: "docs/report.pdf", Name: "report.pdf", Size: 14, Body: rc,
	}, func(f float64) { last = f })
	require.NoError(t, err)

	assert.Equal(t, "users/42/docs/report.pdf", res.Reference)
	assert.Equal(t, int64(14), res.FinalSize)
	assert.Equal(t, 1.0, last)
	assert.Equal(t, "%PDF-1.4 hello", string(fake.objects[res.Reference]))
	assert.Equal(t, "application/pdf", fake.types[res.Reference])
}

func TestS3_OpenMissing(t *testing.T) {
	s := NewS3WithClient(newFakeS3(), "bucket", "")
	_, err := s.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func TestS3_Ping(t *testing.T) {
	fake := newFakeS3()
	s := NewS3WithClient(fake, "bucket", "")
	assert.NoError(t, s.Ping(context.Background()))

	fake.headErr = errors.New("forbidden")
	assert.ErrorContains(t, s.Ping(context.Background()), "forbidden")
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	assert.Error(t, err)
}
