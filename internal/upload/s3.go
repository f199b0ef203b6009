package upload

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"telegram-mirror-bot/internal/config"
	"telegram-mirror-bot/internal/logutils"
)

const uploadConcurrency = 4

// S3Service uploads to Amazon S3 or a compatible endpoint. It backs the
// "ddl" destination.
type S3Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

func NewS3Service(ctx context.Context, cfg config.StorageConfig) (*S3Service, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	logutils.Log.Infof("Using s3 bucket %s (region %s)", cfg.Bucket, cfg.Region)

	return &S3Service{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

func (s *S3Service) UploadDirectory(ctx context.Context, localPath, keyPrefix string) (string, error) {
	root := filepath.Clean(localPath)
	if fi, err := os.Stat(root); err != nil {
		return "", fmt.Errorf("stat local path: %w", err)
	} else if !fi.IsDir() {
		return "", fmt.Errorf("local path must be a directory")
	}

	prefix := s.prefix
	if keyPrefix != "" {
		prefix = prefix + "/" + strings.Trim(keyPrefix, "/")
	}
	prefix = strings.Trim(prefix, "/")

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, path := range paths {
		g.Go(func() error {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return fmt.Errorf("relative path for %s: %w", path, err)
			}
			key := prefix + "/" + filepath.ToSlash(rel)
			key = strings.TrimPrefix(key, "/")

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open file %s: %w", path, err)
			}
			defer f.Close()

			_, err = s.uploader.Upload(gctx, &s3.PutObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
				Body:   f,
				ACL:    types.ObjectCannedACLPrivate,
			})
			if err != nil {
				return fmt.Errorf("upload %s: %w", path, err)
			}
			logutils.Log.Debugf("Uploaded %s", key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, prefix), nil
}
