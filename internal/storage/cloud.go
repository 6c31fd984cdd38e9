package storage

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/cockroachdb/errors"
)

// Client is the slice of the S3 API the uploader needs. Callers pass in
// a configured *s3.S3 (or a test double); the uploader never builds its
// own session, so credentials and region handling stay at the edge.
type Client interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// NewClient builds an S3 client from the ambient AWS credential chain.
func NewClient(region string) (*s3.S3, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}
	return s3.New(sess), nil
}

// UploadResult summarizes a completed upload batch.
type UploadResult struct {
	Uploaded int
	Bytes    int64
	Keys     []string
	Elapsed  time.Duration
}

// Uploader pushes files to one bucket/prefix.
type Uploader struct {
	client      Client
	bucket      string
	prefix      string
	concurrency int
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithConcurrency sets the number of parallel PutObject workers.
func WithConcurrency(n int) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// NewUploader wires an uploader to an existing client.
func NewUploader(client Client, bucket, prefix string, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		concurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload sends each file to s3://bucket/prefix/<base name>. Files are
// uploaded by a fixed pool of workers; the first failure cancels nothing
// already in flight but is the error returned.
func (u *Uploader) Upload(ctx aws.Context, paths []string) (*UploadResult, error) {
	if u.client == nil {
		return nil, errors.New("no storage client configured")
	}
	if len(paths) == 0 {
		return nil, errors.New("nothing to upload")
	}

	start := time.Now()

	jobs := make(chan string, len(paths))
	for _, p := range paths {
		jobs <- p
	}
	close(jobs)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		res   UploadResult
		errCh = make(chan error, u.concurrency)
	)
	for i := 0; i < u.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				key, n, err := u.putFile(ctx, p)
				if err != nil {
					errCh <- err
					return
				}
				mu.Lock()
				res.Uploaded++
				res.Bytes += n
				res.Keys = append(res.Keys, key)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	return &res, nil
}

func (u *Uploader) putFile(ctx aws.Context, p string) (string, int64, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", 0, errors.Wrapf(err, "opening %s", p)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, errors.Wrapf(err, "stat %s", p)
	}

	key := path.Join(u.prefix, filepath.Base(p))
	_, err = u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", 0, errors.Wrapf(err, "uploading %s to s3://%s/%s", p, u.bucket, key)
	}
	return key, info.Size(), nil
}
