// Package keys loads the RSA key pair used to sign and verify access tokens.
//
// Keys are read once at startup, from local PEM files or from an S3-compatible
// bucket when the path has the form s3://bucket/object. The resulting
// KeyMaterial is immutable and safe for concurrent use.
package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang-jwt/jwt/v5"
)

// KeyMaterial holds the signing key, the verification key and the lifetime of
// tokens minted with them.
type KeyMaterial struct {
	signing      *rsa.PrivateKey
	verification *rsa.PublicKey
	lifetime     time.Duration
}

// New checks that pub is the public half of priv.
func New(priv *rsa.PrivateKey, pub *rsa.PublicKey, lifetime time.Duration) (*KeyMaterial, error) {
	if priv == nil || pub == nil {
		return nil, errors.New("key pair is incomplete")
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", lifetime)
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, errors.New("public key does not match private key")
	}
	return &KeyMaterial{signing: priv, verification: pub, lifetime: lifetime}, nil
}

// Parse builds KeyMaterial from PEM-encoded keys. The private key may be
// PKCS#1 or PKCS#8, the public key PKIX or PKCS#1.
func Parse(privatePEM, publicPEM []byte, lifetime time.Duration) (*KeyMaterial, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return New(priv, pub, lifetime)
}

func (k *KeyMaterial) SigningKey() *rsa.PrivateKey     { return k.signing }
func (k *KeyMaterial) VerificationKey() *rsa.PublicKey { return k.verification }
func (k *KeyMaterial) Lifetime() time.Duration         { return k.lifetime }

// S3Options configures access to keys stored in object storage.
type S3Options struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// Load reads both keys and builds KeyMaterial. Any failure here is meant to
// abort process startup.
func Load(ctx context.Context, privatePath, publicPath string, lifetime time.Duration, opts S3Options) (*KeyMaterial, error) {
	l := &loader{opts: opts}

	privatePEM, err := l.read(ctx, privatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key %s: %w", privatePath, err)
	}
	publicPEM, err := l.read(ctx, publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key %s: %w", publicPath, err)
	}

	return Parse(privatePEM, publicPEM, lifetime)
}

// objectGetter is the part of the S3 client used here.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Seams for tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		return s3.NewFromConfig(cfg, optFns...)
	}
	readFile = os.ReadFile
)

type loader struct {
	opts   S3Options
	client objectGetter
}

func (l *loader) read(ctx context.Context, path string) ([]byte, error) {
	bucket, key, ok := parseS3Path(path)
	if !ok {
		return readFile(path)
	}

	client, err := l.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (l *loader) s3Client(ctx context.Context) (objectGetter, error) {
	if l.client != nil {
		return l.client, nil
	}

	optFns := []func(*config.LoadOptions) error{config.WithRegion(l.opts.Region)}
	if l.opts.AccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(l.opts.AccessKey, l.opts.SecretKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	l.client = newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if l.opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(l.opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return l.client, nil
}

// parseS3Path splits s3://bucket/key. ok is false for anything else.
func parseS3Path(path string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(path, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// GeneratePEM creates a fresh RSA key pair encoded as PKCS#8 and PKIX PEM blocks.
func GeneratePEM(bits int) (privatePEM, publicPEM []byte, err error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, nil, err
	}

	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM, nil
}
