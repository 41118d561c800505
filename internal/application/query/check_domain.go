package query

import (
	"context"
	"fmt"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/errs"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
)

type CheckDomain struct {
	repo    interfaces.StoreRepo
	checker interfaces.DomainChecker
}

func NewCheckDomain(repo interfaces.StoreRepo, checker interfaces.DomainChecker) *CheckDomain {
	return &CheckDomain{repo: repo, checker: checker}
}

// Query reports a domain used by a store as unavailable without asking the registrar.
func (c *CheckDomain) Query(ctx context.Context, domain string) (*dto.DomainAvailability, error) {
	domain = dto.SiteKey(domain)
	if domain == "" {
		return nil, errs.ValidationError{Missing: []string{"domain"}}
	}
	used, err := c.repo.DomainExists(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("can't check domain, %w", err)
	}
	if used {
		return &dto.DomainAvailability{Domain: domain, Available: false}, nil
	}
	if c.checker == nil {
		return &dto.DomainAvailability{Domain: domain, Available: true}, nil
	}
	available, err := c.checker.CheckAvailability(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("can't check domain availability, %w", err)
	}
	return &dto.DomainAvailability{Domain: domain, Available: available}, nil
}
