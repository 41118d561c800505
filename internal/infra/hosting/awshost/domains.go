package awshost

import (
	"context"

	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53domains"
	rdTypes "github.com/aws/aws-sdk-go-v2/service/route53domains/types"
)

type DomainRegistry struct {
	client *route53domains.Client
}

var _ interfaces.DomainChecker = (*DomainRegistry)(nil)

func NewDomainRegistry(awsConfig aws.Config) *DomainRegistry {
	domainClientCfg := awsConfig
	domainClientCfg.Region = "us-east-1"
	return &DomainRegistry{client: route53domains.NewFromConfig(domainClientCfg)}
}

func (d *DomainRegistry) CheckAvailability(ctx context.Context, domain string) (bool, error) {
	out, err := d.client.CheckDomainAvailability(ctx, &route53domains.CheckDomainAvailabilityInput{
		DomainName: aws.String(domain),
	})
	if err != nil {
		return false, err
	}
	return out.Availability == rdTypes.DomainAvailabilityAvailable, nil
}
