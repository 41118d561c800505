package awshost

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
)

type Distribution struct {
	ID         string
	DomainName string
	Enabled    bool
}

type CDN struct {
	client *cloudfront.Client
}

func NewCDN(awsConfig aws.Config) *CDN {
	return &CDN{client: cloudfront.NewFromConfig(awsConfig)}
}

// FindByAlias returns nil when no distribution serves domain.
func (c *CDN) FindByAlias(ctx context.Context, domain string) (*Distribution, error) {
	p := cloudfront.NewListDistributionsPaginator(c.client, &cloudfront.ListDistributionsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list distributions: %w", err)
		}
		if page.DistributionList == nil {
			continue
		}
		for _, summary := range page.DistributionList.Items {
			if summary.Aliases == nil || !hasAlias(summary.Aliases.Items, domain) {
				continue
			}
			return &Distribution{
				ID:         aws.ToString(summary.Id),
				DomainName: aws.ToString(summary.DomainName),
				Enabled:    aws.ToBool(summary.Enabled),
			}, nil
		}
	}
	return nil, nil
}

func hasAlias(aliases []string, domain string) bool {
	return slices.ContainsFunc(aliases, func(alias string) bool {
		return strings.EqualFold(alias, domain)
	})
}

func (c *CDN) Create(ctx context.Context, originPath, s3WebDomain, domain, certificateArn string) (*Distribution, error) {
	res, err := c.client.CreateDistribution(ctx, &cloudfront.CreateDistributionInput{
		DistributionConfig: distributionConfig(originPath, s3WebDomain, domain, certificateArn),
	})
	if err != nil {
		slog.Error("err mapping s3 to cloudfront distr", "cf", err)
		return nil, err
	}
	return &Distribution{
		ID:         aws.ToString(res.Distribution.Id),
		DomainName: aws.ToString(res.Distribution.DomainName),
		Enabled:    true,
	}, nil
}

func distributionConfig(originPath, s3WebDomain, domain, certificateArn string) *types.DistributionConfig {
	return &types.DistributionConfig{
		// must be unique per request
		CallerReference: aws.String(fmt.Sprintf("%s-%d", domain, time.Now().UnixNano())),
		Comment:         aws.String("Distribution for store " + domain),

		Enabled:           aws.Bool(true),
		DefaultRootObject: aws.String("index.html"),

		Origins: &types.Origins{
			Quantity: aws.Int32(1),
			Items: []types.Origin{
				{
					Id:         aws.String("1"),
					DomainName: aws.String(s3WebDomain),
					OriginPath: aws.String(originPath),
					CustomOriginConfig: &types.CustomOriginConfig{
						HTTPPort:             aws.Int32(80),
						HTTPSPort:            aws.Int32(443),
						OriginProtocolPolicy: types.OriginProtocolPolicyHttpOnly,
						OriginSslProtocols: &types.OriginSslProtocols{
							Quantity: aws.Int32(1),
							Items:    []types.SslProtocol{types.SslProtocolTLSv12},
						},
					},
				},
			},
		},

		DefaultCacheBehavior: &types.DefaultCacheBehavior{
			TargetOriginId:       aws.String("1"),
			ViewerProtocolPolicy: types.ViewerProtocolPolicyRedirectToHttps,
			AllowedMethods: &types.AllowedMethods{
				Quantity: aws.Int32(2),
				Items:    []types.Method{types.MethodGet, types.MethodHead},
				CachedMethods: &types.CachedMethods{
					Quantity: aws.Int32(2),
					Items:    []types.Method{types.MethodGet, types.MethodHead},
				},
			},
			ForwardedValues: &types.ForwardedValues{
				QueryString: aws.Bool(false),
				Cookies: &types.CookiePreference{
					Forward: types.ItemSelectionNone,
				},
			},
			TrustedSigners: &types.TrustedSigners{
				Enabled:  aws.Bool(false),
				Quantity: aws.Int32(0),
			},
			MinTTL: aws.Int64(0),
		},

		CustomErrorResponses: &types.CustomErrorResponses{
			Quantity: aws.Int32(1),
			Items: []types.CustomErrorResponse{
				{
					ErrorCode:        aws.Int32(404),
					ResponseCode:     aws.String("404"),
					ResponsePagePath: aws.String("/404.html"),
				},
			},
		},

		Aliases: &types.Aliases{
			Quantity: aws.Int32(1),
			Items:    []string{domain},
		},

		ViewerCertificate: &types.ViewerCertificate{
			ACMCertificateArn:      aws.String(certificateArn),
			SSLSupportMethod:       types.SSLSupportMethodSniOnly,
			MinimumProtocolVersion: types.MinimumProtocolVersionTLSv122021,
		},

		HttpVersion:   types.HttpVersionHttp2,
		IsIPV6Enabled: aws.Bool(false),
	}
}

// Disable turns a distribution off and drops its alias so the domain can be reused.
func (c *CDN) Disable(ctx context.Context, id string) error {
	current, err := c.client.GetDistributionConfig(ctx, &cloudfront.GetDistributionConfigInput{Id: aws.String(id)})
	if err != nil {
		return fmt.Errorf("failed to get distribution config: %w", err)
	}
	cfg := current.DistributionConfig
	cfg.Enabled = aws.Bool(false)
	cfg.Aliases = &types.Aliases{Quantity: aws.Int32(0), Items: []string{}}

	_, err = c.client.UpdateDistribution(ctx, &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(id),
		IfMatch:            current.ETag,
		DistributionConfig: cfg,
	})
	if err != nil {
		return fmt.Errorf("failed to disable distribution %s: %w", id, err)
	}
	return nil
}

func (c *CDN) Invalidate(ctx context.Context, id string, paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = []string{"/*"}
	}
	res, err := c.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(id),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(fmt.Sprintf("purge-%d", time.Now().UnixNano())),
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to invalidate distribution %s: %w", id, err)
	}
	return aws.ToString(res.Invalidation.Id), nil
}
