package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	defaultS3RegionConstant         = "us-east-1"
	csvContentTypeConstant          = "text/csv; charset=utf-8"
	s3LocationTemplateConstant      = "s3://%s/%s"
	bucketMissingMessageConstant    = "export: s3 bucket required"
	awsConfigErrorTemplateConstant  = "export: load aws configuration: %w"
	openExportErrorTemplateConstant = "export: open %s for mirroring: %w"
	putObjectErrorTemplateConstant  = "export: upload %s to %s: %w"
)

// S3Configuration selects the bucket receiving export copies. Endpoint and PathStyle
// support S3-compatible stores such as MinIO.
type S3Configuration struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
}

// Enabled reports whether a bucket is configured.
func (configuration S3Configuration) Enabled() bool {
	return len(strings.TrimSpace(configuration.Bucket)) > 0
}

// ObjectPutter is the subset of the S3 client used for mirroring.
type ObjectPutter interface {
	PutObject(executionContext context.Context, input *s3.PutObjectInput, optionFunctions ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror uploads exports to a bucket under an optional key prefix.
type S3Mirror struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Mirror builds a mirror using the default AWS credential chain.
func NewS3Mirror(executionContext context.Context, configuration S3Configuration) (*S3Mirror, error) {
	if !configuration.Enabled() {
		return nil, errors.New(bucketMissingMessageConstant)
	}
	region := strings.TrimSpace(configuration.Region)
	if len(region) == 0 {
		region = defaultS3RegionConstant
	}
	awsConfiguration, loadError := config.LoadDefaultConfig(executionContext, config.WithRegion(region))
	if loadError != nil {
		return nil, fmt.Errorf(awsConfigErrorTemplateConstant, loadError)
	}
	client := s3.NewFromConfig(awsConfiguration, func(options *s3.Options) {
		if configuration.PathStyle {
			options.UsePathStyle = true
		}
		if endpoint := strings.TrimSpace(configuration.Endpoint); len(endpoint) > 0 {
			options.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewS3MirrorWithClient(client, configuration), nil
}

// NewS3MirrorWithClient builds a mirror around an existing client.
func NewS3MirrorWithClient(client ObjectPutter, configuration S3Configuration) *S3Mirror {
	return &S3Mirror{
		client: client,
		bucket: strings.TrimSpace(configuration.Bucket),
		prefix: strings.Trim(strings.TrimSpace(configuration.Prefix), "/"),
	}
}

// Mirror uploads localPath and returns its s3:// location.
func (mirror *S3Mirror) Mirror(executionContext context.Context, localPath string) (string, error) {
	objectKey := filepath.Base(localPath)
	if len(mirror.prefix) > 0 {
		objectKey = path.Join(mirror.prefix, objectKey)
	}
	location := fmt.Sprintf(s3LocationTemplateConstant, mirror.bucket, objectKey)

	exportFile, openError := os.Open(localPath)
	if openError != nil {
		return "", fmt.Errorf(openExportErrorTemplateConstant, localPath, openError)
	}
	defer func() { _ = exportFile.Close() }()

	_, putError := mirror.client.PutObject(executionContext, &s3.PutObjectInput{
		Bucket:      aws.String(mirror.bucket),
		Key:         aws.String(objectKey),
		Body:        exportFile,
		ContentType: aws.String(csvContentTypeConstant),
	})
	if putError != nil {
		return "", fmt.Errorf(putObjectErrorTemplateConstant, localPath, location, putError)
	}
	return location, nil
}
