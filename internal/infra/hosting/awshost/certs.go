package awshost

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/acm/types"
)

type Certificates struct {
	client     *acm.Client
	baseDomain string
	defaultARN string
}

func NewCertificates(cfg aws.Config, baseDomain, defaultARN string) *Certificates {
	return &Certificates{
		client: acm.NewFromConfig(cfg, func(o *acm.Options) {
			o.Region = "us-east-1" // region must be us-east-1 for CloudFront certificates
		}),
		baseDomain: baseDomain,
		defaultARN: defaultARN,
	}
}

// ARNFor returns the wildcard certificate for subdomains of the base domain and requests
// a dedicated one otherwise.
func (a *Certificates) ARNFor(ctx context.Context, domain string) (string, error) {
	if underBase(domain, a.baseDomain) && a.defaultARN != "" {
		return a.defaultARN, nil
	}
	return a.CreateCertificate(ctx, domain)
}

func (a *Certificates) CreateCertificate(ctx context.Context, domain string) (string, error) {
	res, err := a.client.RequestCertificate(ctx, &acm.RequestCertificateInput{
		DomainName:       aws.String(domain),
		ValidationMethod: types.ValidationMethodDns,
		// same token on retry returns the pending certificate instead of a new one
		IdempotencyToken: aws.String(idempotencyToken(domain)),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(res.CertificateArn), nil
}

func underBase(domain, base string) bool {
	domain = strings.ToLower(domain)
	base = strings.ToLower(base)
	return base != "" && (domain == base || strings.HasSuffix(domain, "."+base))
}

// idempotencyToken fits acm's \w+ up to 32 chars.
func idempotencyToken(domain string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(domain)))
	return hex.EncodeToString(sum[:])[:32]
}
