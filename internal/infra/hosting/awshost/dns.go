package awshost

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	rTypes "github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// cloudFrontZoneID is the fixed hosted zone of every CloudFront alias target.
const cloudFrontZoneID = "Z2FDTNDATAQYW2"

type Records struct {
	client *route53.Client
}

func NewRecords(awsConfig aws.Config) *Records {
	return &Records{client: route53.NewFromConfig(awsConfig)}
}

func (r *Records) UpsertAlias(ctx context.Context, domain, cfDomain string) error {
	return r.change(ctx, rTypes.ChangeActionUpsert, domain, cfDomain)
}

func (r *Records) DeleteAlias(ctx context.Context, domain, cfDomain string) error {
	return r.change(ctx, rTypes.ChangeActionDelete, domain, cfDomain)
}

func (r *Records) change(ctx context.Context, action rTypes.ChangeAction, domain, cfDomain string) error {
	hostedZoneID, err := r.hostedZoneFor(ctx, domain)
	if err != nil {
		return err
	}

	resp, err := r.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(hostedZoneID),
		ChangeBatch: &rTypes.ChangeBatch{
			Changes: []rTypes.Change{
				{
					Action: action,
					ResourceRecordSet: &rTypes.ResourceRecordSet{
						Name: aws.String(domain),
						Type: rTypes.RRTypeA,
						AliasTarget: &rTypes.AliasTarget{
							DNSName:              aws.String(cfDomain),
							HostedZoneId:         aws.String(cloudFrontZoneID),
							EvaluateTargetHealth: false,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to %s alias record: %w", strings.ToLower(string(action)), err)
	}

	slog.Info("record change submitted", "domain", domain, "action", action, "change", aws.ToString(resp.ChangeInfo.Id))
	return nil
}

func (r *Records) hostedZoneFor(ctx context.Context, domain string) (string, error) {
	res, err := r.client.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(apex(domain)),
	})
	if err != nil {
		return "", err
	}
	zones := make(map[string]string, len(res.HostedZones))
	for _, zone := range res.HostedZones {
		zones[aws.ToString(zone.Name)] = aws.ToString(zone.Id)
	}
	id := matchZone(domain, zones)
	if id == "" {
		return "", fmt.Errorf("no hosted zone for %s", domain)
	}
	return id, nil
}

// matchZone picks the most specific zone name that domain falls under. Zone names carry
// the trailing dot route53 returns, ids their /hostedzone/ prefix.
func matchZone(domain string, zones map[string]string) string {
	fqdn := strings.ToLower(strings.TrimSuffix(domain, ".")) + "."
	var best, bestID string
	for name, id := range zones {
		name = strings.ToLower(name)
		if fqdn != name && !strings.HasSuffix(fqdn, "."+name) {
			continue
		}
		if len(name) > len(best) {
			best = name
			bestID = strings.TrimPrefix(id, "/hostedzone/")
		}
	}
	return bestID
}

func apex(domain string) string {
	labels := strings.Split(strings.TrimSuffix(domain, "."), ".")
	if len(labels) <= 2 {
		return domain
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
