package s3

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

// S3Config holds configuration for S3 storage
type S3Config struct {
	Region          string        `json:"region"`
	Bucket          string        `json:"bucket"`
	AccessKeyID     string        `json:"access_key_id"`
	SecretAccessKey string        `json:"secret_access_key"`
	Endpoint        string        `json:"endpoint,omitempty"`
	ForcePathStyle  bool          `json:"force_path_style"`
	Prefix          string        `json:"prefix"`
	Timeout         time.Duration `json:"timeout"`
	MaxRetries      int           `json:"max_retries"`
	UseCompression  bool          `json:"use_compression"`
}

// S3Storage keeps one JSON object per operation under the configured prefix.
// Listing reads every object, so it suits modest result volumes.
type S3Storage struct {
	config *S3Config
	client s3iface.S3API
	logger *logrus.Logger
	mu     sync.RWMutex
	closed bool
}

// NewS3Storage creates a new S3 storage instance
func NewS3Storage(config *S3Config, logger *logrus.Logger) (*S3Storage, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidConfig, "S3 config cannot be nil")
	}

	if config.Bucket == "" {
		return nil, errors.NewConfigurationError(errors.CodeInvalidConfig, "S3 bucket is required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &S3Storage{
		config: config,
		logger: logger,
	}, nil
}

// Connect builds the session and checks the bucket is reachable
func (s *S3Storage) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	awsConfig := &aws.Config{
		Region:     aws.String(s.config.Region),
		MaxRetries: aws.Int(s.config.MaxRetries),
	}
	if s.config.Timeout > 0 {
		awsConfig.HTTPClient = &http.Client{Timeout: s.config.Timeout}
	}

	if s.config.AccessKeyID != "" && s.config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			s.config.AccessKeyID,
			s.config.SecretAccessKey,
			"",
		)
	}

	// S3 compatible services such as MinIO
	if s.config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s.config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(s.config.ForcePathStyle)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "Failed to create AWS session")
	}

	client := s3.New(sess)
	if _, err := client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	}); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed,
			"Failed to access bucket '"+s.config.Bucket+"'")
	}

	s.client = client
	s.closed = false

	s.logger.WithFields(logrus.Fields{
		"region": s.config.Region,
		"bucket": s.config.Bucket,
	}).Info("Connected to S3")

	return nil
}

// Close releases the client. S3 holds no persistent connection.
func (s *S3Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.client = nil
	s.closed = true

	s.logger.Info("S3 connection closed")
	return nil
}

// Ping tests the S3 connection
func (s *S3Storage) Ping(ctx context.Context) error {
	client, err := s.connectedClient()
	if err != nil {
		return err
	}

	if _, err := client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	}); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "S3 ping failed")
	}
	return nil
}

// Save writes the operation object, replacing any previous one
func (s *S3Storage) Save(ctx context.Context, op *models.Operation) error {
	if op == nil || op.ID == "" {
		return errors.NewValidationError(errors.CodeMissingField, "operation ID is required")
	}

	client, err := s.connectedClient()
	if err != nil {
		return err
	}

	body, err := s.encode(op)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(s.generateObjectKey(op.ID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]*string{
			"kind":       aws.String(string(op.Kind)),
			"created-at": aws.String(op.CreatedAt.UTC().Format(time.RFC3339Nano)),
		},
	}
	if s.config.UseCompression {
		input.ContentEncoding = aws.String("gzip")
	}

	if _, err := client.PutObjectWithContext(ctx, input); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to write to S3")
	}

	s.logger.WithFields(logrus.Fields{
		"operation_id": op.ID,
		"kind":         op.Kind,
		"bytes":        len(body),
	}).Debug("Stored operation in S3")

	return nil
}

// Get reads one operation
func (s *S3Storage) Get(ctx context.Context, id string) (*models.Operation, error) {
	client, err := s.connectedClient()
	if err != nil {
		return nil, err
	}

	return s.read(ctx, client, s.generateObjectKey(id), id)
}

// List reads every operation object under the prefix, newest first
func (s *S3Storage) List(ctx context.Context, filter interfaces.ListFilter) ([]*models.Operation, error) {
	client, err := s.connectedClient()
	if err != nil {
		return nil, err
	}

	var keys []string
	err = client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
		Prefix: aws.String(s.operationsPrefix()),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to list S3 objects")
	}

	ops := make([]*models.Operation, 0, len(keys))
	for _, key := range keys {
		op, err := s.read(ctx, client, key, key)
		if err != nil {
			// deleted between list and read
			if stderrors.Is(err, errors.ErrOperationNotFound) {
				continue
			}
			return nil, err
		}
		if filter.Matches(op) {
			ops = append(ops, op)
		}
	}

	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].CreatedAt.After(ops[j].CreatedAt)
	})
	if filter.Limit > 0 && len(ops) > filter.Limit {
		ops = ops[:filter.Limit]
	}

	return ops, nil
}

// Delete removes the operation object. S3 reports no error for missing keys.
func (s *S3Storage) Delete(ctx context.Context, id string) error {
	client, err := s.connectedClient()
	if err != nil {
		return err
	}

	if _, err := client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.generateObjectKey(id)),
	}); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to delete from S3")
	}
	return nil
}

func (s *S3Storage) read(ctx context.Context, client s3iface.S3API, key, id string) (*models.Operation, error) {
	out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, errors.WrapError(errors.ErrOperationNotFound, errors.ErrorTypeStorage,
				errors.CodeDataNotFound, "operation not found").WithDetails(id)
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to read from S3")
	}
	defer out.Body.Close()

	var body io.Reader = out.Body
	if aws.StringValue(out.ContentEncoding) == "gzip" {
		gz, err := gzip.NewReader(out.Body)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to decompress S3 object")
		}
		defer gz.Close()
		body = gz
	}

	var op models.Operation
	if err := json.NewDecoder(body).Decode(&op); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to decode stored operation")
	}
	return &op, nil
}

func (s *S3Storage) encode(op *models.Operation) ([]byte, error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeWriteFailed, "Failed to serialize operation")
	}
	if !s.config.UseCompression {
		return payload, nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeWriteFailed, "Failed to compress operation")
	}
	if err := gz.Close(); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeWriteFailed, "Failed to compress operation")
	}
	return buf.Bytes(), nil
}

func (s *S3Storage) connectedClient() (s3iface.S3API, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.client == nil {
		return nil, errors.WrapError(errors.ErrStorageConnectionFailed, errors.ErrorTypeStorage,
			errors.CodeConnectionFailed, "S3 not connected")
	}
	return s.client, nil
}

func (s *S3Storage) operationsPrefix() string {
	return path.Join(strings.Trim(s.config.Prefix, "/"), "operations") + "/"
}

func (s *S3Storage) generateObjectKey(id string) string {
	return s.operationsPrefix() + id + ".json"
}
