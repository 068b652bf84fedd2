// Package s3 serves s3://<bucket>/<key> paths from Amazon S3 or a
// compatible service. Directories are key prefixes, optionally backed by a
// zero-length "<key>/" marker object; attributes are user metadata.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/objectfs/mountfs/internal/circuit"
	mfserrors "github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/retry"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// Scheme is the URI scheme served by this backend.
const Scheme = "s3"

const delimiter = "/"

// Backend implements types.FileSystem on S3.
type Backend struct {
	api      API
	config   *Config
	retryer  *retry.Retryer
	breakers *circuit.Manager
	uploader Uploader
	logger   *slog.Logger

	mu      sync.RWMutex
	metrics BackendMetrics
}

// BackendMetrics tracks S3 backend request metrics
type BackendMetrics struct {
	Requests        int64         `json:"requests"`
	Errors          int64         `json:"errors"`
	BytesUploaded   int64         `json:"bytes_uploaded"`
	BytesDownloaded int64         `json:"bytes_downloaded"`
	AverageLatency  time.Duration `json:"average_latency"`
	LastError       string        `json:"last_error"`
	LastErrorTime   time.Time     `json:"last_error_time"`
}

// NewBackend creates a backend on top of an existing client.
func NewBackend(api API, cfg *Config, logger *slog.Logger) *Backend {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.MaxRetries
	rc.InitialDelay = cfg.RetryBaseDelay
	rc.MaxDelay = cfg.RetryMaxDelay
	rc.RetryIf = isTransient

	b := &Backend{
		api:    api,
		config: cfg,
		logger: logger.With("component", "s3-backend"),
	}
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		b.logger.Debug("retrying S3 request", "attempt", attempt, "delay", delay, "error", err)
	}
	b.retryer = retry.New(rc)
	b.breakers = circuit.NewManager(circuit.Config{
		Timeout:      cfg.BreakerTimeout,
		ReadyToTrip:  func(c circuit.Counts) bool { return c.ConsecutiveFailures >= cfg.BreakerThreshold },
		IsSuccessful: func(err error) bool { return err == nil || !isTransient(err) },
		OnStateChange: func(bucket string, from, to circuit.State) {
			b.logger.Warn("S3 circuit breaker state changed", "bucket", bucket, "from", from.String(), "to", to.String())
		},
	})
	return b
}

// NewBackendFromConfig creates a backend with a client built from cfg.
func NewBackendFromConfig(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backend, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b := NewBackend(client, cfg, logger)
	if cfg.EnableCargoShipOptimization {
		b.uploader = newTransporterUploader(client, cfg)
		b.logger.Info("accelerated uploads enabled",
			"threshold", cfg.UploadThreshold,
			"concurrency", cfg.UploadConcurrency)
	}
	return b, nil
}

// Scheme implements types.FileSystem.
func (b *Backend) Scheme() string {
	return Scheme
}

// HealthCheck verifies that bucket is reachable.
func (b *Backend) HealthCheck(ctx context.Context, bucket string) error {
	_, err := b.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		return fmt.Errorf("S3 health check failed: %w", err)
	}
	return nil
}

// GetMetrics returns current backend metrics
func (b *Backend) GetMetrics() BackendMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

func objectKey(p vpath.Path) string {
	return strings.TrimPrefix(p.Path, delimiter)
}

func dirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return key + delimiter
}

func (b *Backend) check(op string, p vpath.Path) error {
	if p.Scheme != Scheme {
		return mfserrors.Newf(mfserrors.ErrCodeStorageUnsupported, "scheme %q not served by S3 backend", p.Scheme).
			WithComponent("s3-backend").WithOperation(op).WithDetail("path", p.String())
	}
	if p.Authority == "" {
		return mfserrors.NewError(mfserrors.ErrCodePathInvalid, "S3 path has no bucket").
			WithComponent("s3-backend").WithOperation(op).WithDetail("path", p.String())
	}
	return nil
}

// BreakerStats returns the circuit breaker state of every bucket accessed.
func (b *Backend) BreakerStats() []circuit.CircuitBreakerStats {
	return b.breakers.GetStats()
}

// do runs fn with retries behind the circuit breaker of bucket and records
// request metrics.
func (b *Backend) do(ctx context.Context, bucket string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := b.breakers.GetBreaker(bucket).Execute(ctx, func(ctx context.Context) error {
		return b.retryer.DoWithContext(ctx, fn)
	})
	b.recordMetrics(time.Since(start), err)
	return err
}

func (b *Backend) head(ctx context.Context, bucket, key string) (*s3.HeadObjectOutput, error) {
	var out *s3.HeadObjectOutput
	err := b.do(ctx, bucket, func(ctx context.Context) error {
		var err error
		out, err = b.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		return err
	})
	return out, err
}

// listPage returns keys and common prefixes under prefix. With limit > 0
// listing stops once at least limit results were collected.
func (b *Backend) list(ctx context.Context, bucket, prefix string, delimited bool, limit int) ([]s3types.Object, []string, error) {
	var (
		objects  []s3types.Object
		prefixes []string
		token    *string
	)
	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			MaxKeys:           aws.Int32(b.config.ListPageSize),
			ContinuationToken: token,
		}
		if delimited {
			input.Delimiter = aws.String(delimiter)
		}

		var out *s3.ListObjectsV2Output
		err := b.do(ctx, bucket, func(ctx context.Context) error {
			var err error
			out, err = b.api.ListObjectsV2(ctx, input)
			return err
		})
		if err != nil {
			return nil, nil, err
		}

		objects = append(objects, out.Contents...)
		for _, cp := range out.CommonPrefixes {
			prefixes = append(prefixes, aws.ToString(cp.Prefix))
		}
		if limit > 0 && len(objects)+len(prefixes) >= limit {
			break
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	return objects, prefixes, nil
}

func (b *Backend) hasChildren(ctx context.Context, bucket, key string) (bool, error) {
	objects, prefixes, err := b.list(ctx, bucket, dirPrefix(key), false, 1)
	if err != nil {
		return false, err
	}
	return len(objects)+len(prefixes) > 0, nil
}

// Open implements types.FileSystem.
func (b *Backend) Open(ctx context.Context, p vpath.Path) (io.ReadCloser, error) {
	if err := b.check("open", p); err != nil {
		return nil, err
	}
	key := objectKey(p)
	if key == "" {
		return nil, &fs.PathError{Op: "open", Path: p.String(), Err: fmt.Errorf("is a directory")}
	}

	var out *s3.GetObjectOutput
	err := b.do(ctx, p.Authority, func(ctx context.Context) error {
		var err error
		out, err = b.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(p.Authority),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		if isNotFound(err) {
			if dir, derr := b.hasChildren(ctx, p.Authority, key); derr == nil && dir {
				return nil, &fs.PathError{Op: "open", Path: p.String(), Err: fmt.Errorf("is a directory")}
			}
		}
		return nil, b.translateError(err, "open", p)
	}
	return &countingReader{ReadCloser: out.Body, backend: b}, nil
}

// Create implements types.FileSystem. The object is uploaded on Close.
func (b *Backend) Create(ctx context.Context, p vpath.Path, overwrite bool) (io.WriteCloser, error) {
	if err := b.check("create", p); err != nil {
		return nil, err
	}
	if objectKey(p) == "" {
		return nil, &fs.PathError{Op: "create", Path: p.String(), Err: fs.ErrExist}
	}
	if !overwrite {
		ok, err := types.Exists(ctx, b, p)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, &fs.PathError{Op: "create", Path: p.String(), Err: fs.ErrExist}
		}
	}
	return &objectWriter{ctx: ctx, backend: b, path: p}, nil
}

// upload sends data through the uploader, falling back to a single
// PutObject when the accelerated upload fails.
func (b *Backend) upload(ctx context.Context, bucket, key string, data []byte) error {
	err := b.do(ctx, bucket, func(ctx context.Context) error {
		return b.uploader.Upload(ctx, bucket, key, bytes.NewReader(data), int64(len(data)))
	})
	if err == nil {
		b.mu.Lock()
		b.metrics.BytesUploaded += int64(len(data))
		b.mu.Unlock()
		return nil
	}
	if circuit.IsRejected(err) {
		return err
	}
	b.logger.Warn("accelerated upload failed, falling back to PutObject", "bucket", bucket, "key", key, "error", err)
	return b.put(ctx, bucket, key, data, nil)
}

func (b *Backend) put(ctx context.Context, bucket, key string, data []byte, metadata map[string]string) error {
	err := b.do(ctx, bucket, func(ctx context.Context) error {
		_, err := b.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
			ContentType:   aws.String(detectContentType(key)),
			Metadata:      metadata,
		})
		return err
	})
	if err == nil {
		b.mu.Lock()
		b.metrics.BytesUploaded += int64(len(data))
		b.mu.Unlock()
	}
	return err
}

func (b *Backend) copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	return b.do(ctx, dstBucket, func(ctx context.Context) error {
		_, err := b.api.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:            aws.String(dstBucket),
			Key:               aws.String(dstKey),
			CopySource:        aws.String(copySource(srcBucket, srcKey)),
			MetadataDirective: s3types.MetadataDirectiveCopy,
		})
		return err
	})
}

func (b *Backend) deleteKey(ctx context.Context, bucket, key string) error {
	return b.do(ctx, bucket, func(ctx context.Context) error {
		_, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		return err
	})
}

// Rename implements types.FileSystem as copy followed by delete. Renaming
// a directory moves every key below it; it is not atomic.
func (b *Backend) Rename(ctx context.Context, src, dst vpath.Path) error {
	if err := b.check("rename", src); err != nil {
		return err
	}
	if err := b.check("rename", dst); err != nil {
		return err
	}
	srcKey, dstKey := objectKey(src), objectKey(dst)
	if srcKey == "" || dstKey == "" {
		return &fs.PathError{Op: "rename", Path: src.String(), Err: fs.ErrInvalid}
	}

	st, err := b.GetFileStatus(ctx, src)
	if err != nil {
		return err
	}
	exists, err := types.Exists(ctx, b, dst)
	if err != nil {
		return err
	}
	if exists {
		return &fs.PathError{Op: "rename", Path: dst.String(), Err: fs.ErrExist}
	}

	if !st.IsDir {
		if err := b.copy(ctx, src.Authority, srcKey, dst.Authority, dstKey); err != nil {
			return b.translateError(err, "rename", src)
		}
		if err := b.deleteKey(ctx, src.Authority, srcKey); err != nil {
			return b.translateError(err, "rename", src)
		}
		return nil
	}

	srcPrefix, dstPrefix := dirPrefix(srcKey), dirPrefix(dstKey)
	objects, _, err := b.list(ctx, src.Authority, srcPrefix, false, 0)
	if err != nil {
		return b.translateError(err, "rename", src)
	}
	for _, obj := range objects {
		k := aws.ToString(obj.Key)
		if err := b.copy(ctx, src.Authority, k, dst.Authority, dstPrefix+strings.TrimPrefix(k, srcPrefix)); err != nil {
			return b.translateError(err, "rename", src)
		}
	}
	for _, obj := range objects {
		if err := b.deleteKey(ctx, src.Authority, aws.ToString(obj.Key)); err != nil {
			return b.translateError(err, "rename", src)
		}
	}
	b.logger.Debug("directory renamed", "src", src.String(), "dst", dst.String(), "objects", len(objects))
	return nil
}

// Delete implements types.FileSystem.
func (b *Backend) Delete(ctx context.Context, p vpath.Path, recursive bool) error {
	if err := b.check("delete", p); err != nil {
		return err
	}
	st, err := b.GetFileStatus(ctx, p)
	if err != nil {
		return err
	}
	key := objectKey(p)

	if !st.IsDir {
		if err := b.deleteKey(ctx, p.Authority, key); err != nil {
			return b.translateError(err, "delete", p)
		}
		return nil
	}

	prefix := dirPrefix(key)
	objects, _, err := b.list(ctx, p.Authority, prefix, false, 0)
	if err != nil {
		return b.translateError(err, "delete", p)
	}
	if !recursive {
		for _, obj := range objects {
			if aws.ToString(obj.Key) != prefix {
				return &fs.PathError{Op: "delete", Path: p.String(), Err: errDirNotEmpty}
			}
		}
	}
	for _, obj := range objects {
		if err := b.deleteKey(ctx, p.Authority, aws.ToString(obj.Key)); err != nil {
			return b.translateError(err, "delete", p)
		}
	}
	return nil
}

var errDirNotEmpty = errors.New("directory not empty")

// ListStatus implements types.FileSystem. Listing a file returns its own
// status.
func (b *Backend) ListStatus(ctx context.Context, p vpath.Path) ([]types.FileStatus, error) {
	if err := b.check("list", p); err != nil {
		return nil, err
	}
	key := objectKey(p)

	if key != "" {
		out, err := b.head(ctx, p.Authority, key)
		if err == nil {
			return []types.FileStatus{fileStatus(p, out)}, nil
		}
		if !isNotFound(err) {
			return nil, b.translateError(err, "list", p)
		}
	}

	prefix := dirPrefix(key)
	objects, prefixes, err := b.list(ctx, p.Authority, prefix, true, 0)
	if err != nil {
		return nil, b.translateError(err, "list", p)
	}

	out := make([]types.FileStatus, 0, len(objects)+len(prefixes))
	found := key == ""
	for _, cp := range prefixes {
		found = true
		name := strings.TrimSuffix(strings.TrimPrefix(cp, prefix), delimiter)
		if name == "" {
			continue
		}
		out = append(out, types.FileStatus{Path: p.Join(name), IsDir: true, Mode: fs.ModeDir | 0o755})
	}
	for _, obj := range objects {
		found = true
		k := aws.ToString(obj.Key)
		if k == prefix {
			continue
		}
		out = append(out, types.FileStatus{
			Path:    p.Join(strings.TrimPrefix(k, prefix)),
			Size:    aws.ToInt64(obj.Size),
			ModTime: aws.ToTime(obj.LastModified),
			Mode:    0o644,
			ETag:    aws.ToString(obj.ETag),
		})
	}
	if !found {
		return nil, types.NotExist("list", p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path.Path < out[j].Path.Path })
	return out, nil
}

// Mkdirs implements types.FileSystem by writing a directory marker.
func (b *Backend) Mkdirs(ctx context.Context, p vpath.Path) error {
	if err := b.check("mkdirs", p); err != nil {
		return err
	}
	key := objectKey(p)
	if key == "" {
		return nil
	}

	st, err := b.GetFileStatus(ctx, p)
	switch {
	case err == nil && !st.IsDir:
		return &fs.PathError{Op: "mkdirs", Path: p.String(), Err: fs.ErrExist}
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return err
	}

	if _, err := b.head(ctx, p.Authority, dirPrefix(key)); err == nil {
		return nil
	}
	if err := b.put(ctx, p.Authority, dirPrefix(key), nil, nil); err != nil {
		return b.translateError(err, "mkdirs", p)
	}
	return nil
}

// GetFileStatus implements types.FileSystem.
func (b *Backend) GetFileStatus(ctx context.Context, p vpath.Path) (*types.FileStatus, error) {
	if err := b.check("stat", p); err != nil {
		return nil, err
	}
	key := objectKey(p)
	if key == "" {
		return &types.FileStatus{Path: p, IsDir: true, Mode: fs.ModeDir | 0o755}, nil
	}

	out, err := b.head(ctx, p.Authority, key)
	if err == nil {
		st := fileStatus(p, out)
		return &st, nil
	}
	if !isNotFound(err) {
		return nil, b.translateError(err, "stat", p)
	}

	dir, err := b.hasChildren(ctx, p.Authority, key)
	if err != nil {
		return nil, b.translateError(err, "stat", p)
	}
	if !dir {
		return nil, types.NotExist("stat", p)
	}
	return &types.FileStatus{Path: p, IsDir: true, Mode: fs.ModeDir | 0o755}, nil
}

// attrObject returns the key carrying attributes for p: the object itself
// for files, the directory marker for directories.
func (b *Backend) attrObject(ctx context.Context, op string, p vpath.Path) (string, *types.FileStatus, error) {
	st, err := b.GetFileStatus(ctx, p)
	if err != nil {
		return "", nil, err
	}
	key := objectKey(p)
	if st.IsDir {
		key = dirPrefix(key)
	}
	return key, st, nil
}

// GetAttr implements types.FileSystem from S3 user metadata.
func (b *Backend) GetAttr(ctx context.Context, p vpath.Path, name string) ([]byte, error) {
	if err := b.check("getattr", p); err != nil {
		return nil, err
	}
	key, _, err := b.attrObject(ctx, "getattr", p)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("getattr %s %s: %w", p, name, types.ErrAttrNotFound)
	}

	out, err := b.head(ctx, p.Authority, key)
	if err != nil {
		if isNotFound(err) {
			// Directory without a marker object.
			return nil, fmt.Errorf("getattr %s %s: %w", p, name, types.ErrAttrNotFound)
		}
		return nil, b.translateError(err, "getattr", p)
	}
	v, ok := out.Metadata[metadataKey(name)]
	if !ok {
		return nil, fmt.Errorf("getattr %s %s: %w", p, name, types.ErrAttrNotFound)
	}
	return []byte(v), nil
}

// SetAttr implements types.AttrSetter by rewriting the object's metadata
// in place.
func (b *Backend) SetAttr(ctx context.Context, p vpath.Path, name string, value []byte) error {
	if err := b.check("setattr", p); err != nil {
		return err
	}
	key, st, err := b.attrObject(ctx, "setattr", p)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("setattr %s %s: %w", p, name, types.ErrAttrNotSupported)
	}

	metadata := map[string]string{}
	out, err := b.head(ctx, p.Authority, key)
	switch {
	case err == nil:
		for k, v := range out.Metadata {
			metadata[k] = v
		}
	case isNotFound(err) && st.IsDir:
		if err := b.put(ctx, p.Authority, key, nil, nil); err != nil {
			return b.translateError(err, "setattr", p)
		}
	default:
		return b.translateError(err, "setattr", p)
	}
	metadata[metadataKey(name)] = string(value)

	err = b.do(ctx, p.Authority, func(ctx context.Context) error {
		_, err := b.api.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:            aws.String(p.Authority),
			Key:               aws.String(key),
			CopySource:        aws.String(copySource(p.Authority, key)),
			Metadata:          metadata,
			MetadataDirective: s3types.MetadataDirectiveReplace,
			ContentType:       aws.String(detectContentType(key)),
		})
		return err
	})
	if err != nil {
		return b.translateError(err, "setattr", p)
	}
	return nil
}

func fileStatus(p vpath.Path, out *s3.HeadObjectOutput) types.FileStatus {
	return types.FileStatus{
		Path:    p,
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
		Mode:    0o644,
		ETag:    aws.ToString(out.ETag),
	}
}

// S3 returns user metadata keys lower-cased.
func metadataKey(name string) string {
	return strings.ToLower(name)
}

func copySource(bucket, key string) string {
	parts := strings.Split(key, delimiter)
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return bucket + delimiter + strings.Join(parts, delimiter)
}

// Helper methods

func (b *Backend) recordMetrics(duration time.Duration, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.metrics.Requests++
	if err != nil && !isNotFound(err) {
		b.metrics.Errors++
		b.metrics.LastError = err.Error()
		b.metrics.LastErrorTime = time.Now()
	}

	// Rolling average latency
	if b.metrics.Requests == 1 {
		b.metrics.AverageLatency = duration
	} else {
		b.metrics.AverageLatency = time.Duration(
			(int64(b.metrics.AverageLatency)*9 + int64(duration)) / 10,
		)
	}
}

func (b *Backend) translateError(err error, operation string, p vpath.Path) error {
	switch {
	case isErrorType[*s3types.NoSuchBucket](err):
		return mfserrors.Wrap(&fs.PathError{Op: operation, Path: p.String(), Err: fs.ErrNotExist},
			mfserrors.ErrCodeBucketNotFound, "bucket not found: "+p.Authority).
			WithComponent("s3-backend").WithOperation(operation)
	case isNotFound(err):
		return &fs.PathError{Op: operation, Path: p.String(), Err: fs.ErrNotExist}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case circuit.IsRejected(err):
		return mfserrors.Wrap(err, mfserrors.ErrCodeConnectionFailed, "bucket temporarily unavailable: "+p.Authority).
			WithComponent("s3-backend").WithOperation(operation)
	default:
		return mfserrors.Wrap(err, mfserrors.ErrCodeOperationFailed, fmt.Sprintf("%s failed for %s", operation, p)).
			WithComponent("s3-backend").WithOperation(operation)
	}
}

func isNotFound(err error) bool {
	if isErrorType[*s3types.NoSuchBucket](err) {
		return false
	}
	return isErrorType[*s3types.NoSuchKey](err) || isErrorType[*s3types.NotFound](err)
}

// isTransient reports whether a raw SDK error is worth retrying.
func isTransient(err error) bool {
	if isNotFound(err) || isErrorType[*s3types.NoSuchBucket](err) {
		return false
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		code := re.HTTPStatusCode()
		return code >= 500 || code == 429
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func detectContentType(key string) string {
	switch {
	case strings.HasSuffix(key, delimiter):
		return "application/x-directory"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".xml"):
		return "application/xml"
	case strings.HasSuffix(key, ".html"):
		return "text/html"
	case strings.HasSuffix(key, ".txt"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// isErrorType checks if an error is of a specific type
func isErrorType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
