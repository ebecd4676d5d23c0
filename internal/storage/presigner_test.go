package storage_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"quote-service/internal/config"
	"quote-service/internal/storage"
)

func TestPDFPresigner_PresignPDFUpload(t *testing.T) {
	p, err := storage.NewPDFPresigner(context.Background(), config.S3Config{
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		BucketName:   "quotes",
		AccessKey:    "minio",
		SecretKey:    "minio-secret",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	uploadURL, objectURL, err := p.PresignPDFUpload(context.Background(), "quotes/u/q.pdf")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/quotes/quotes/u/q.pdf", objectURL)

	parsed, err := url.Parse(uploadURL)
	require.NoError(t, err)
	require.Equal(t, "localhost:9000", parsed.Host)
	require.Equal(t, "/quotes/quotes/u/q.pdf", parsed.Path)
	require.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
	require.Equal(t, "900", parsed.Query().Get("X-Amz-Expires"))
}
