package awshost

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/utils"
)

const deleteBatchSize = 1000

type Storage struct {
	client *s3.Client
	bucket string
	region string
}

func NewStorage(config aws.Config, bucket, region string) *Storage {
	return &Storage{
		client: s3.NewFromConfig(config, func(o *s3.Options) {
			o.UsePathStyle = true
		}),
		bucket: bucket,
		region: region,
	}
}

func (s *Storage) UploadFile(ctx context.Context, key string, contentType *string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading for content-type detection: %v", err)
	}

	var ct string
	if contentType == nil {
		ct = detectContentType(key, data)
	} else {
		ct = *contentType
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(ct),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// UploadDir mirrors every regular file under dir to prefix/<relative path> and returns the
// uploaded keys.
func (s *Storage) UploadDir(ctx context.Context, prefix, dir string) ([]string, error) {
	var uploaded []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("malformed filepath, %s: %v", path, err)
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() {
			_ = file.Close()
		}()
		key := strings.TrimSuffix(prefix, "/") + "/" + filepath.ToSlash(rel)
		if _, err = s.UploadFile(ctx, key, nil, file); err != nil {
			return fmt.Errorf("can't put object %v", err)
		}
		uploaded = append(uploaded, key)
		return nil
	})
	if err != nil {
		return uploaded, err
	}
	slog.Info("uploaded site files", "prefix", prefix, "count", len(uploaded))
	return uploaded, nil
}

func (s *Storage) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var files []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return files, fmt.Errorf("failed to get page, %v", err)
		}
		for _, obj := range page.Contents {
			files = append(files, aws.ToString(obj.Key))
		}
	}
	return files, nil
}

func (s *Storage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := s.ListFiles(ctx, prefix)
	if err != nil {
		return 0, err
	}
	return s.DeleteKeys(ctx, keys)
}

func (s *Storage) DeleteKeys(ctx context.Context, keys []string) (int, error) {
	var deleted int
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		objects := make([]s3Types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, s3Types.ObjectIdentifier{Key: aws.String(key)})
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3Types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, fmt.Errorf("error deleting objects: %v", err)
		}
		deleted += len(objects)
	}
	return deleted, nil
}

func detectContentType(key string, data []byte) string {
	if ext := filepath.Ext(key); ext != "" {
		if ct := utils.GetMIME(ext); ct != "" && ct != "application/octet-stream" {
			return ct
		}
	}
	return http.DetectContentType(data)
}
