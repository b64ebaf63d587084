package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	appconfig "NewsPulse/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver 保存渲染好的图表，返回对象地址
type Archiver interface {
	Put(ctx context.Context, name string, png []byte) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archiver struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Archiver 凭证走 AWS 默认链（环境变量/共享配置/实例角色）
func NewS3Archiver(ctx context.Context, cfg appconfig.ArchiveConfig) (*S3Archiver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (a *S3Archiver) Put(ctx context.Context, name string, png []byte) (string, error) {
	key := path.Join(a.prefix, name)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("上传图表失败: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// ChartName topic/起止日期/生成时间 组成的对象名
func ChartName(topic, kind, startDate, endDate string, at time.Time) string {
	return fmt.Sprintf("%s/%s_%s_%s_%s.png", topic, kind, startDate, endDate, at.UTC().Format("20060102T150405"))
}

// Noop 未配置存储桶时使用
type Noop struct{}

func (Noop) Put(context.Context, string, []byte) (string, error) { return "", nil }
