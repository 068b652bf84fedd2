package s3

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data     []byte
	metadata map[string]string
	modTime  time.Time
}

// fakeAPI is an in-memory S3 with just enough behavior for the backend.
type fakeAPI struct {
	mu       sync.Mutex
	buckets  map[string]map[string]*fakeObject
	failures map[string]int
	calls    map[string]int
}

func newFakeAPI(buckets ...string) *fakeAPI {
	f := &fakeAPI{
		buckets:  make(map[string]map[string]*fakeObject),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
	for _, b := range buckets {
		f.buckets[b] = make(map[string]*fakeObject)
	}
	return f
}

// failNext makes the next n calls of op fail with a timeout.
func (f *fakeAPI) failNext(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = n
}

func (f *fakeAPI) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) keys(bucket string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.buckets[bucket] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// enter must be called with f.mu held.
func (f *fakeAPI) enter(op, bucket string) (map[string]*fakeObject, error) {
	f.calls[op]++
	if f.failures[op] > 0 {
		f.failures[op]--
		return nil, timeoutError{}
	}
	objects, ok := f.buckets[bucket]
	if !ok {
		return nil, &s3types.NoSuchBucket{}
	}
	return objects, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	objects, err := f.enter("GetObject", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	obj, ok := objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	objects, err := f.enter("PutObject", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	objects[aws.ToString(in.Key)] = &fakeObject{data: data, metadata: copyMeta(in.Metadata), modTime: time.Now()}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	objects, err := f.enter("HeadObject", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	obj, ok := objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		LastModified:  aws.Time(obj.modTime),
		Metadata:      copyMeta(obj.metadata),
		ETag:          aws.String(`"fake"`),
	}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	objects, err := f.enter("DeleteObject", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	delete(objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dst, err := f.enter("CopyObject", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	source, err := url.PathUnescape(aws.ToString(in.CopySource))
	if err != nil {
		return nil, err
	}
	srcBucket, srcKey, _ := strings.Cut(source, "/")
	src, ok := f.buckets[srcBucket]
	if !ok {
		return nil, &s3types.NoSuchBucket{}
	}
	obj, ok := src[srcKey]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	meta := obj.metadata
	if in.MetadataDirective == s3types.MetadataDirectiveReplace {
		meta = in.Metadata
	}
	dst[aws.ToString(in.Key)] = &fakeObject{data: append([]byte(nil), obj.data...), metadata: copyMeta(meta), modTime: time.Now()}
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	objects, err := f.enter("ListObjectsV2", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}

	prefix, delim := aws.ToString(in.Prefix), aws.ToString(in.Delimiter)
	var keys []string
	for k := range objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := aws.ToString(in.ContinuationToken)
	limit := int(aws.ToInt32(in.MaxKeys))
	out := &s3.ListObjectsV2Output{}
	seen := map[string]bool{}
	n := 0
	for _, k := range keys {
		if start != "" && k <= start {
			continue
		}
		if limit > 0 && n >= limit {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(start)
			break
		}
		start = k
		if delim != "" {
			if i := strings.Index(k[len(prefix):], delim); i >= 0 {
				cp := k[:len(prefix)+i+1]
				if !seen[cp] {
					seen[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, s3types.CommonPrefix{Prefix: aws.String(cp)})
					n++
				}
				continue
			}
		}
		obj := objects[k]
		out.Contents = append(out.Contents, s3types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modTime),
		})
		n++
	}
	out.KeyCount = aws.Int32(int32(n))
	return out, nil
}

func (f *fakeAPI) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.enter("HeadBucket", aws.ToString(in.Bucket)); err != nil {
		return nil, err
	}
	return &s3.HeadBucketOutput{}, nil
}

func copyMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ API = (*fakeAPI)(nil)
