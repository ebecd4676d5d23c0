package storage

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"quote-service/internal/config"
)

const uploadURLExpiry = 15 * time.Minute

// PDFPresigner issues presigned PUT URLs for quote PDFs on an S3-compatible store.
type PDFPresigner struct {
	presignClient *s3.PresignClient
	bucketName    string
	publicBaseURL string
}

func NewPDFPresigner(ctx context.Context, cfg config.S3Config) (*PDFPresigner, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &PDFPresigner{
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
		publicBaseURL: strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.BucketName,
	}, nil
}

func (p *PDFPresigner) PresignPDFUpload(ctx context.Context, objectKey string) (string, string, error) {
	request, err := p.presignClient.PresignPutObject(ctx,
		&s3.PutObjectInput{
			Bucket:      aws.String(p.bucketName),
			Key:         aws.String(objectKey),
			ContentType: aws.String("application/pdf"),
		},
		func(opts *s3.PresignOptions) {
			opts.Expires = uploadURLExpiry
		},
	)
	if err != nil {
		return "", "", err
	}

	return request.URL, p.publicBaseURL + "/" + objectKey, nil
}
