package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
)

func deployCmd() *cobra.Command {
	var (
		bucket string
		prefix string
		region string
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload static assets to S3",
		Long: `Upload a directory of static assets (the client bundle and any
application assets) to an S3 bucket, typically fronted by a CDN.

Credentials are read from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
and, if set, AWS_SESSION_TOKEN.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				return fmt.Errorf("--bucket is required")
			}

			client, err := newS3Client(region)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			count, err := uploadDir(ctx, client, dir, bucket, prefix)
			if err != nil {
				return err
			}

			success("uploaded %d files to s3://%s/%s", count, bucket, prefix)
			return nil
		},
	}

	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "Target S3 bucket (required)")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "assets/", "Key prefix inside the bucket")
	cmd.Flags().StringVarP(&region, "region", "r", "us-east-1", "AWS region")
	cmd.Flags().StringVarP(&dir, "dir", "d", "client/dist", "Directory to upload")

	return cmd
}

// newS3Client builds an S3 client from environment credentials.
func newS3Client(region string) (*s3.Client, error) {
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}

	cfg := aws.Config{
		Region: region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     accessKey,
					SecretAccessKey: secretKey,
					SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
					Source:          "environment",
				}, nil
			})),
	}
	return s3.NewFromConfig(cfg), nil
}

// uploadDir puts every regular file under dir into the bucket, keyed
// by prefix + the file's path relative to dir.
func uploadDir(ctx context.Context, client *s3.Client, dir, bucket, prefix string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".go") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		key := prefix + filepath.ToSlash(rel)

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        f,
			ContentType: aws.String(contentType),
			Metadata: map[string]string{
				"upload-time": time.Now().UTC().Format(time.RFC3339),
			},
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}

		info("%s -> s3://%s/%s", rel, bucket, key)
		count++
		return nil
	})
	return count, err
}
