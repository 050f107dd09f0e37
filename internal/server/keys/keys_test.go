package keys

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genPair(t *testing.T) ([]byte, []byte) {
	t.Helper()
	priv, pub, err := GeneratePEM(2048)
	require.NoError(t, err)
	return priv, pub
}

func TestParse_Success(t *testing.T) {
	priv, pub := genPair(t)

	km, err := Parse(priv, pub, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, km.Lifetime())
	assert.True(t, km.SigningKey().PublicKey.Equal(km.VerificationKey()))
}

func TestParse_Errors(t *testing.T) {
	priv, pub := genPair(t)
	_, otherPub := genPair(t)

	tests := []struct {
		name     string
		priv     []byte
		pub      []byte
		lifetime time.Duration
	}{
		{"garbage private", []byte("nope"), pub, time.Hour},
		{"garbage public", priv, []byte("nope"), time.Hour},
		{"public key swapped for private", pub, pub, time.Hour},
		{"mismatched pair", priv, otherPub, time.Hour},
		{"zero lifetime", priv, pub, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.priv, tt.pub, tt.lifetime)
			assert.Error(t, err)
		})
	}
}

func TestLoad_FromFiles(t *testing.T) {
	priv, pub := genPair(t)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o644))

	km, err := Load(context.Background(), privPath, pubPath, time.Minute, S3Options{})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, km.Lifetime())
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	_, err := Load(context.Background(), "/definitely/missing.pem", "/also/missing.pem", time.Minute, S3Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read private key")
}

type fakeS3 struct {
	objects map[string][]byte
	calls   int
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	b, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func stubS3(t *testing.T, fake *fakeS3, wantEndpoint string) {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-north-1", lo.Region)
		require.NotNil(t, lo.Credentials, "static credentials expected")
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		var o s3.Options
		for _, fn := range optFns {
			fn(&o)
		}
		assert.Equal(t, wantEndpoint, aws.ToString(o.BaseEndpoint))
		assert.True(t, o.UsePathStyle)
		return fake
	}
}

func TestLoad_FromS3(t *testing.T) {
	priv, pub := genPair(t)
	fake := &fakeS3{objects: map[string][]byte{
		"keys/jwt/private.pem": priv,
		"keys/jwt/public.pem":  pub,
	}}
	stubS3(t, fake, "http://127.0.0.1:9000")

	km, err := Load(context.Background(), "s3://keys/jwt/private.pem", "s3://keys/jwt/public.pem", time.Hour, S3Options{
		Region:       "eu-north-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "minio",
		SecretKey:    "minio123",
	})
	require.NoError(t, err)
	require.NotNil(t, km)
	assert.Equal(t, 2, fake.calls)
}

func TestLoad_FromS3_MissingObject(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	stubS3(t, fake, "http://minio:9000")

	_, err := Load(context.Background(), "s3://keys/private.pem", "s3://keys/public.pem", time.Hour, S3Options{
		Region:       "eu-north-1",
		BaseEndpoint: "http://minio:9000",
		AccessKey:    "minio",
		SecretKey:    "minio123",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 get object")
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://b/k.pem", "b", "k.pem", true},
		{"s3://b/dir/k.pem", "b", "dir/k.pem", true},
		{"s3://b", "", "", false},
		{"s3:///k", "", "", false},
		{"keys/private.pem", "", "", false},
	}
	for _, tt := range tests {
		b, k, ok := parseS3Path(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.bucket, b, tt.in)
		assert.Equal(t, tt.key, k, tt.in)
	}
}
