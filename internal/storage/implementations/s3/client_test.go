package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

type storedObject struct {
	body     []byte
	encoding *string
}

// fakeS3 keeps objects in memory; unimplemented methods panic via the nil interface
type fakeS3 struct {
	s3iface.S3API
	mu      sync.Mutex
	objects map[string]storedObject
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]storedObject{}}
}

func (f *fakeS3) HeadBucketWithContext(aws.Context, *s3.HeadBucketInput, ...request.Option) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.StringValue(in.Key)] = storedObject{body: body, encoding: in.ContentEncoding}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{
		Body:            io.NopCloser(bytes.NewReader(obj.body)),
		ContentEncoding: obj.encoding,
	}, nil
}

func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	f.mu.Lock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.StringValue(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	f.mu.Unlock()
	sort.Strings(keys)

	page := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		page.Contents = append(page.Contents, &s3.Object{Key: aws.String(k)})
	}
	fn(page, true)
	return nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newFakeStorage(t *testing.T, config *S3Config) (*S3Storage, *fakeS3) {
	t.Helper()
	storage, err := NewS3Storage(config, logrus.New())
	require.NoError(t, err)
	fake := newFakeS3()
	storage.client = fake
	return storage, fake
}

func operation(id string, kind models.OperationKind, created time.Time) *models.Operation {
	return &models.Operation{ID: id, Kind: kind, CreatedAt: created}
}

func TestNewS3StorageInvalidConfig(t *testing.T) {
	_, err := NewS3Storage(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")

	_, err = NewS3Storage(&S3Config{Region: "us-east-1"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestS3StorageObjectKeys(t *testing.T) {
	storage, err := NewS3Storage(&S3Config{Bucket: "b", Prefix: "/sdc/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sdc/operations/op-1.json", storage.generateObjectKey("op-1"))

	storage, err = NewS3Storage(&S3Config{Bucket: "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "operations/op-1.json", storage.generateObjectKey("op-1"))
}

func TestS3StorageNotConnected(t *testing.T) {
	storage, err := NewS3Storage(&S3Config{Bucket: "b"}, nil)
	require.NoError(t, err)

	err = storage.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrStorageConnectionFailed))
	assert.NoError(t, storage.Close())
}

func TestS3StorageRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		storage, fake := newFakeStorage(t, &S3Config{Bucket: "b", Prefix: "sdc", UseCompression: compress})
		ctx := context.Background()

		op := operation("op-1", models.OperationKindRisk, time.Now().UTC())
		require.NoError(t, storage.Save(ctx, op))

		got, err := storage.Get(ctx, "op-1")
		require.NoError(t, err)
		assert.Equal(t, op.ID, got.ID)
		assert.Equal(t, op.Kind, got.Kind)

		stored := fake.objects["sdc/operations/op-1.json"]
		assert.Equal(t, compress, stored.encoding != nil)
	}
}

func TestS3StorageGetMissing(t *testing.T) {
	storage, _ := newFakeStorage(t, &S3Config{Bucket: "b"})

	_, err := storage.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrOperationNotFound))
}

func TestS3StorageListNewestFirst(t *testing.T) {
	storage, _ := newFakeStorage(t, &S3Config{Bucket: "b"})
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, storage.Save(ctx, operation("a", models.OperationKindRisk, base)))
	require.NoError(t, storage.Save(ctx, operation("b", models.OperationKindAnonymization, base.Add(time.Second))))
	require.NoError(t, storage.Save(ctx, operation("c", models.OperationKindRisk, base.Add(2*time.Second))))

	ops, err := storage.List(ctx, interfaces.ListFilter{})
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{ops[0].ID, ops[1].ID, ops[2].ID})

	ops, err = storage.List(ctx, interfaces.ListFilter{Kind: models.OperationKindRisk, Limit: 1})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "c", ops[0].ID)
}

func TestS3StorageDelete(t *testing.T) {
	storage, _ := newFakeStorage(t, &S3Config{Bucket: "b"})
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, operation("a", models.OperationKindRisk, time.Now())))
	require.NoError(t, storage.Delete(ctx, "a"))
	require.NoError(t, storage.Delete(ctx, "a"))

	_, err := storage.Get(ctx, "a")
	assert.True(t, stderrors.Is(err, errors.ErrOperationNotFound))
}

func TestS3StorageSaveRequiresID(t *testing.T) {
	storage, _ := newFakeStorage(t, &S3Config{Bucket: "b"})
	assert.Error(t, storage.Save(context.Background(), &models.Operation{}))
}

func TestS3StorageIntegration(t *testing.T) {
	bucket := os.Getenv("SDC_TEST_S3_BUCKET")
	if bucket == "" {
		t.Skip("Integration test - set SDC_TEST_S3_BUCKET to a writable bucket")
	}

	storage, err := NewS3Storage(&S3Config{
		Region:         os.Getenv("AWS_REGION"),
		Bucket:         bucket,
		Endpoint:       os.Getenv("SDC_TEST_S3_ENDPOINT"),
		ForcePathStyle: true,
		Prefix:         "sdc-test",
	}, logrus.New())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, storage.Connect(ctx))
	defer storage.Close()

	op := operation("integration-op", models.OperationKindRisk, time.Now().UTC())
	require.NoError(t, storage.Save(ctx, op))
	defer storage.Delete(ctx, op.ID)

	got, err := storage.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, op.ID, got.ID)
}
