package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used for uploads.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Uploader struct {
	Client S3API
	Bucket string
	Region string
}

// NewS3Client builds an S3 client. Empty keys fall back to the default AWS credential chain.
func NewS3Client(ctx context.Context, region, accessKey, secretKey string) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

func NewS3Uploader(client S3API, bucket, region string) *S3Uploader {
	return &S3Uploader{Client: client, Bucket: bucket, Region: region}
}

func (u *S3Uploader) Upload(ctx context.Context, f File) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", uploadErr(err)
	}
	defer func() { _ = r.Close() }()

	key := ObjectKey(f.Filename())
	_, err = u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        r,
		ACL:         types.ObjectCannedACLPublicRead,
		ContentType: aws.String(f.ContentType()),
	})
	if err != nil {
		return "", uploadErr(err)
	}
	return S3URL(u.Bucket, u.Region, key), nil
}

var _ Uploader = (*S3Uploader)(nil)
