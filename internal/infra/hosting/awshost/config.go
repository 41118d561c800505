package awshost

import (
	"time"

	"github.com/Builder-Lawyers/store-builder/pkg/env"
)

type Config struct {
	Bucket string
	Region string
	// S3WebDomain is the bucket website endpoint used as the distribution origin.
	S3WebDomain    string
	BaseDomain     string
	DefaultCertARN string
	Prefix         string
	Timeout        time.Duration
}

func NewConfig() Config {
	return Config{
		Bucket:         env.GetEnv("S3_BUCKET", "store-sites"),
		Region:         env.GetEnv("AWS_DEFAULT_REGION", "eu-north-1"),
		S3WebDomain:    env.GetEnv("P_S3_WEB_DOMAIN", "store-sites.s3-website.eu-north-1.amazonaws.com"),
		BaseDomain:     env.GetEnv("BASE_DOMAIN", "stores.local"),
		DefaultCertARN: env.GetEnv("P_CERT_ARN", ""),
		Prefix:         env.GetEnv("P_SITES_PREFIX", "sites"),
		Timeout:        env.GetDuration("P_TIMEOUT", 10*time.Second),
	}
}
