// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var r2Client *s3.Client
var r2Bucket string
var cdnBaseURL string

func InitR2() error {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")
	r2Bucket = os.Getenv("R2_BUCKET_NAME")
	cdnBaseURL = os.Getenv("CDN_BASE_URL")
	if cdnBaseURL == "" {
		cdnBaseURL = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to load R2 config: %w", err)
	}

	r2Client = s3.NewFromConfig(cfg)
	return nil
}

// UploadFileToR2 uploads a local file to R2 and returns the public CDN URL.
// key is the R2 object key (e.g., "webgl/v1-2-0/Build/game.wasm.br").
// Unity ships brotli-compressed artifacts (*.br); those are stored with
// Content-Encoding br and the content type of the inner file so browsers
// decompress transparently.
func UploadFileToR2(localPath, key string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	contentType, contentEncoding := detectWebGLContentType(key)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(r2Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	if contentEncoding != "" {
		input.ContentEncoding = aws.String(contentEncoding)
	}

	if _, err := r2Client.PutObject(context.TODO(), input); err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return fmt.Sprintf("%s/%s", cdnBaseURL, key), nil
}

// detectWebGLContentType resolves the content type (and encoding) for a
// build artifact key, unwrapping Unity's .br suffix.
func detectWebGLContentType(key string) (contentType, contentEncoding string) {
	name := key
	if strings.HasSuffix(name, ".br") {
		contentEncoding = "br"
		name = strings.TrimSuffix(name, ".br")
	}
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".wasm":
		contentType = "application/wasm"
	case ".data":
		contentType = "application/octet-stream"
	case ".js":
		contentType = "application/javascript"
	default:
		if contentType = mime.TypeByExtension(ext); contentType == "" {
			contentType = "application/octet-stream"
		}
	}
	return contentType, contentEncoding
}
