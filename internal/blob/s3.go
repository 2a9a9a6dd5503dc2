package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sehxxnee/botbuilder/pkg/config"
	apperrors "github.com/sehxxnee/botbuilder/pkg/errors"
)

// S3Downloader reads objects from an S3-compatible bucket. The endpoint may
// be Cloudflare R2 or MinIO; credentials come from the default AWS chain.
type S3Downloader struct {
	client *s3.Client
	bucket string
}

var _ Downloader = (*S3Downloader)(nil)

func NewS3(ctx context.Context, cfg config.BlobConfig) (*S3Downloader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Downloader{client: client, bucket: cfg.Bucket}, nil
}

func (d *S3Downloader) Download(ctx context.Context, fileKey string) ([]byte, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(fileKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrBlobNotFound, fileKey)
		}
		return nil, fmt.Errorf("downloading %s: %w", fileKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", fileKey, err)
	}
	return data, nil
}
