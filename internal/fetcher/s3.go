package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
)

// DefaultS3Endpoint is used when Options.S3.Endpoint is empty.
const DefaultS3Endpoint = "s3.amazonaws.com"

// S3Options configures S3-compatible object storage.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	// Insecure uses plain HTTP, for local MinIO.
	Insecure bool
}

// S3Fetcher downloads s3://bucket/key objects.
type S3Fetcher struct {
	client *minio.Client
}

// NewS3Fetcher creates a client for opts.S3. Without keys, requests are
// anonymous.
func NewS3Fetcher(opts Options) (*S3Fetcher, error) {
	endpoint := opts.S3.Endpoint
	if endpoint == "" {
		endpoint = DefaultS3Endpoint
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.S3.AccessKey, opts.S3.SecretKey, ""),
		Secure: !opts.S3.Insecure,
		Region: opts.S3.Region,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "s3: create client for %s", endpoint)
	}
	if name, version, ok := strings.Cut(opts.UserAgent, "/"); ok {
		client.SetAppInfo(name, version)
	}
	return &S3Fetcher{client: client}, nil
}

func parseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", eris.Wrapf(err, "s3: parse url %s", raw)
	}
	if !strings.EqualFold(u.Scheme, "s3") {
		return "", "", eris.Errorf("s3: unsupported scheme %q", u.Scheme)
	}
	bucket, key = u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", eris.Errorf("s3: url %s needs a bucket and a key", raw)
	}
	return bucket, key, nil
}

// Download implements Fetcher. A missing object is reported before any body
// is read.
func (f *S3Fetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, err
	}

	obj, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "s3: get %s/%s", bucket, key)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close() //nolint:errcheck
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, eris.Wrapf(err, "s3: no such object %s/%s", bucket, key)
		}
		return nil, eris.Wrapf(err, "s3: stat %s/%s", bucket, key)
	}
	return obj, nil
}
