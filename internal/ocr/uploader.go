package ocr

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// TempCredentials are the short-lived keys handed out by the vendor's token
// broker for the temporary upload bucket.
type TempCredentials struct {
	AccessKeyID     string `json:"AccessKeyId"`
	AccessKeySecret string `json:"AccessKeySecret"`
	SecurityToken   string `json:"SecurityToken"`
	Expiration      string `json:"Expiration"`
}

// Uploader re-hosts a source image so the OCR endpoint can fetch it; the
// vendor cannot read arbitrary third-party URLs directly.
type Uploader interface {
	Upload(ctx context.Context, creds TempCredentials, key string, body io.Reader) (string, error)
}

// S3Uploader talks to the vendor's S3-compatible temporary bucket. A fresh
// client is built per call because each call carries its own token.
type S3Uploader struct {
	Bucket   string
	Endpoint string
	Region   string
}

func (u S3Uploader) Upload(ctx context.Context, creds TempCredentials, key string, body io.Reader) (string, error) {
	cfg := aws.Config{
		Region: u.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.AccessKeySecret,
			creds.SecurityToken,
		),
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(u.Endpoint)
		o.UsePathStyle = true
	})

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("upload temp object: %w", err)
	}

	endpoint, err := url.Parse(u.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse upload endpoint: %w", err)
	}

	return fmt.Sprintf("https://%s.%s/%s", u.Bucket, endpoint.Host, key), nil
}
