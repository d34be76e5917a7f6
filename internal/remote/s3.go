package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/logging"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// S3Config configures the S3-compatible backend.
type S3Config struct {
	Bucket      string
	Region      string
	Endpoint    string
	Credentials *Credentials
	HTTPClient  *http.Client

	// MaxRetries caps retry attempts for failed requests; zero keeps
	// the SDK default. RetryBaseDelay seeds the exponential backoff.
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// S3Store implements ObjectStore against any S3-compatible endpoint.
type S3Store struct {
	client *s3.Client
	bucket string
	logger logging.Logger
}

// NewS3Store builds the store. When cfg.Endpoint is set the client
// talks to it with path-style addressing, which R2 and MinIO require.
func NewS3Store(ctx context.Context, cfg S3Config, logger logging.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.Credentials != nil {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Credentials.AccessKeyID,
				cfg.Credentials.SecretAccessKey,
				cfg.Credentials.SessionToken,
			),
		))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.MaxRetries > 0 {
		maxAttempts := cfg.MaxRetries + 1
		maxBackoff := backoffCeiling(cfg.RetryBaseDelay, cfg.MaxRetries)
		opts = append(opts, awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = maxAttempts
				o.Backoff = retry.NewExponentialJitterBackoff(maxBackoff)
			})
		}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// backoffCeiling doubles the base delay once per retry and caps the
// result so a misconfigured base cannot stall transfers for minutes.
func backoffCeiling(base time.Duration, retries int) time.Duration {
	if base <= 0 {
		base = utils.DefaultRetryDelayMs * time.Millisecond
	}
	ceiling := base
	for i := 0; i < retries; i++ {
		ceiling *= 2
		if ceiling >= utils.MaxRetryDelayMs*time.Millisecond {
			return utils.MaxRetryDelayMs * time.Millisecond
		}
	}
	return ceiling
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Key < objects[j].Key
	})
	return objects, nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head %s: %w", key, err)
	}
	return true, nil
}

func (s *S3Store) GetBytes(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *S3Store) PutBytes(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Download(ctx context.Context, key, localPath string, onBytes ByteProgress) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", localPath, err)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}

	var w io.Writer = f
	if onBytes != nil {
		w = &countingWriter{w: f, onBytes: onBytes}
	}

	if _, err := io.Copy(w, out.Body); err != nil {
		f.Close()
		os.Remove(localPath)
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", localPath, err)
	}

	s.logger.Debug("downloaded object", logging.F("key", key))
	return nil
}

func (s *S3Store) Upload(ctx context.Context, localPath, key string, onBytes ByteProgress) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	var body io.Reader = f
	if onBytes != nil {
		body = &countingReader{r: f, onBytes: onBytes}
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Debug("uploaded object", logging.F("key", key), logging.F("size", info.Size()))
	return nil
}

// Copy performs a server-side copy. Objects at or above the S3
// CopyObject size limit go through multipart UploadPartCopy.
func (s *S3Store) Copy(ctx context.Context, srcKey, dstKey string, size int64, onBytes ByteProgress) error {
	if size < utils.MultipartCopyThreshold {
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(s.bucket),
			Key:        aws.String(dstKey),
			CopySource: aws.String(s.bucket + "/" + srcKey),
		})
		if err != nil {
			return fmt.Errorf("failed to copy %s to %s: %w", srcKey, dstKey, err)
		}
		if onBytes != nil {
			onBytes(size)
		}
		return nil
	}
	return s.multipartCopy(ctx, srcKey, dstKey, size, onBytes)
}

func (s *S3Store) multipartCopy(ctx context.Context, srcKey, dstKey string, size int64, onBytes ByteProgress) error {
	create, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(dstKey),
	})
	if err != nil {
		return fmt.Errorf("failed to start multipart copy to %s: %w", dstKey, err)
	}
	uploadID := create.UploadId

	abort := func() {
		_, _ = s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(dstKey),
			UploadId: uploadID,
		})
	}

	var parts []s3types.CompletedPart
	var partNum int32
	for offset := int64(0); offset < size; offset += utils.CopyPartSize {
		partNum++
		end := offset + utils.CopyPartSize - 1
		if end >= size {
			end = size - 1
		}

		part, err := s.client.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
			Bucket:          aws.String(s.bucket),
			Key:             aws.String(dstKey),
			UploadId:        uploadID,
			PartNumber:      aws.Int32(partNum),
			CopySource:      aws.String(s.bucket + "/" + srcKey),
			CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", offset, end)),
		})
		if err != nil {
			abort()
			return fmt.Errorf("failed to copy part %d of %s: %w", partNum, srcKey, err)
		}

		parts = append(parts, s3types.CompletedPart{
			ETag:       part.CopyPartResult.ETag,
			PartNumber: aws.Int32(partNum),
		})
		if onBytes != nil {
			onBytes(end - offset + 1)
		}
	}

	_, err = s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(dstKey),
		UploadId: uploadID,
		MultipartUpload: &s3types.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		abort()
		return fmt.Errorf("failed to complete multipart copy to %s: %w", dstKey, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

type countingReader struct {
	r       io.Reader
	onBytes ByteProgress
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.onBytes(int64(n))
	}
	return n, err
}

type countingWriter struct {
	w       io.Writer
	onBytes ByteProgress
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		c.onBytes(int64(n))
	}
	return n, err
}
