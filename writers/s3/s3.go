package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/goccy/go-json"
)

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type bufferKey struct {
	stream  string
	version int64
}

type buffer struct {
	data    bytes.Buffer
	records int
}

// S3 destination buffers JSON lines per stream version and uploads one object per flush
// s3_path/stream/version/<timestamp>_<ulid>.jsonl
// The active version of a stream is recorded in s3_path/stream/_active_version.json
type S3 struct {
	config  *Config
	client  objectAPI
	buffers map[bufferKey]*buffer
}

func (s *S3) GetConfigRef() destination.Config {
	s.config = &Config{}
	return s.config
}

func (s *S3) Spec() any {
	return Config{}
}

func (s *S3) Type() string {
	return string(destination.S3)
}

func (s *S3) newClient(ctx context.Context) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s.config.Region)}
	if s.config.AccessKey != "" && s.config.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.config.AccessKey, s.config.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %s", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.config.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.config.Endpoint)
		}
		o.UsePathStyle = s.config.PathStyle
	}), nil
}

// Check writes and deletes a probe object
func (s *S3) Check(ctx context.Context) error {
	if s.client == nil {
		client, err := s.newClient(ctx)
		if err != nil {
			return err
		}
		s.client = client
	}

	testKey := path.Join(s.config.Prefix, "olake_test", utils.TimestampedFileName("txt"))
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(testKey),
		Body:   bytes.NewReader([]byte("S3 write test")),
	}); err != nil {
		return fmt.Errorf("failed to write test file to S3: %s", err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(testKey),
	}); err != nil {
		return fmt.Errorf("failed to delete test file from S3: %s", err)
	}

	logger.Debugf("verified write access to s3://%s/%s", s.config.Bucket, s.config.Prefix)
	return nil
}

func (s *S3) Write(ctx context.Context, message *types.Message) error {
	switch message.Type {
	case types.RecordMessage:
		line, err := json.Marshal(destination.FlatRecord(message))
		if err != nil {
			return fmt.Errorf("failed to marshal record: %s", err)
		}
		if s.buffers == nil {
			s.buffers = make(map[bufferKey]*buffer)
		}
		key := bufferKey{stream: message.Stream, version: message.Version}
		buf, found := s.buffers[key]
		if !found {
			buf = &buffer{}
			s.buffers[key] = buf
		}
		buf.data.Write(line)
		buf.data.WriteByte('\n')
		buf.records++
	case types.ActivateVersionMessage:
		// data of the version must land before the marker points at it
		if err := s.Flush(ctx); err != nil {
			return err
		}
		marker, err := json.Marshal(map[string]int64{"version": message.Version})
		if err != nil {
			return err
		}
		key := path.Join(s.config.Prefix, message.Stream, "_active_version.json")
		if err := s.put(ctx, key, marker); err != nil {
			return fmt.Errorf("failed to activate version %d of %s: %s", message.Version, message.Stream, err)
		}
	}
	return nil
}

func (s *S3) put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return err
}

// Flush uploads every non empty buffer
func (s *S3) Flush(ctx context.Context) error {
	for key, buf := range s.buffers {
		if buf.records == 0 {
			continue
		}
		objectKey := path.Join(s.config.Prefix, key.stream, strconv.FormatInt(key.version, 10), utils.TimestampedFileName(constants.JSONLFileExt))
		if err := s.put(ctx, objectKey, buf.data.Bytes()); err != nil {
			return fmt.Errorf("failed to upload to S3: %s", err)
		}
		logger.Infof("uploaded s3://%s/%s with %d records", s.config.Bucket, objectKey, buf.records)
		delete(s.buffers, key)
	}
	return nil
}

func (s *S3) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

func init() {
	destination.Register(destination.S3, func() destination.Writer {
		return new(S3)
	})
}
