package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
)

type CreateStoreRequest struct {
	Name      string          `json:"name" validate:"required,max=120"`
	Domain    string          `json:"domain" validate:"omitempty,fqdn,max=253"`
	Subdomain string          `json:"subdomain" validate:"omitempty,max=63"`
	Country   string          `json:"country" validate:"required,iso3166_1_alpha2"`
	Language  string          `json:"language" validate:"required,min=2,max=16"`
	Currency  string          `json:"currency" validate:"required,iso4217"`
	Config    *db.StoreConfig `json:"config,omitempty"`
	// DeploymentID keys the progress stream for this run, optional.
	DeploymentID string `json:"deploymentId,omitempty"`
}

// HostedSite is what the hosting and version control collaborators need to know about a
// store's generated site.
type HostedSite struct {
	Project string
	Domain  string
	Key     string
	Dir     string
}

// SiteKey is the directory and object key of a domain's site. A leading www. label is
// dropped so the bare and www hosts share one site.
func SiteKey(domain string) string {
	key := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if rest, ok := strings.CutPrefix(key, "www."); ok && strings.Contains(rest, ".") {
		return rest
	}
	return key
}

func NewHostedSite(store *db.Store, dir string) HostedSite {
	return HostedSite{
		Project: store.Subdomain,
		Domain:  SiteKey(store.Domain),
		Key:     SiteKey(store.Domain),
		Dir:     dir,
	}
}

type PublishResult struct {
	URL           string `json:"url"`
	DeploymentURL string `json:"deploymentUrl,omitempty"`
	IsLive        bool   `json:"isLive"`
}

// CreateResult is returned once the store record exists. PipelineErr carries a failed
// best-effort deployment; the store itself was persisted either way.
type CreateResult struct {
	Store       *db.Store
	Publish     *PublishResult
	PipelineErr error
}

func (r *CreateResult) Failed() bool {
	return r.PipelineErr != nil
}

type RedeployResult struct {
	Store           *db.Store      `json:"store"`
	AlreadyDeployed bool           `json:"alreadyDeployed"`
	Publish         *PublishResult `json:"publish,omitempty"`
}

type DeleteResult struct {
	StoreID      uint64   `json:"storeId"`
	Warnings     []string `json:"warnings,omitempty"`
	FallbackUsed bool     `json:"fallbackUsed"`
}

type StoreResponse struct {
	ID               uint64          `json:"id"`
	UUID             string          `json:"uuid"`
	Name             string          `json:"name"`
	Domain           string          `json:"domain"`
	Subdomain        string          `json:"subdomain"`
	Country          string          `json:"country"`
	Language         string          `json:"language"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	DeploymentStatus string          `json:"deploymentStatus"`
	LastDeployError  string          `json:"lastDeployError,omitempty"`
	Config           json.RawMessage `json:"config,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	DeployedAt       *time.Time      `json:"deployedAt,omitempty"`
}

func NewStoreResponse(store *db.Store) StoreResponse {
	resp := StoreResponse{
		ID:               store.ID,
		UUID:             store.UUID.String(),
		Name:             store.Name,
		Domain:           store.Domain,
		Subdomain:        store.Subdomain,
		Country:          store.Country,
		Language:         store.Language,
		Currency:         store.Currency,
		Status:           string(store.Status),
		DeploymentStatus: string(store.DeploymentStatus),
		Config:           store.Config,
		CreatedAt:        store.CreatedAt,
		DeployedAt:       store.DeployedAt,
	}
	if store.LastDeployError != nil {
		resp.LastDeployError = *store.LastDeployError
	}
	return resp
}

type CreateStoreResponse struct {
	Store         StoreResponse  `json:"store"`
	Publish       *PublishResult `json:"publish,omitempty"`
	PipelineError string         `json:"pipelineError,omitempty"`
}

type DomainAvailability struct {
	Domain    string `json:"domain"`
	Available bool   `json:"available"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Missing []string          `json:"missing,omitempty"`
	Invalid map[string]string `json:"invalid,omitempty"`
}

type RedeployResponse struct {
	Store           StoreResponse  `json:"store"`
	AlreadyDeployed bool           `json:"alreadyDeployed"`
	Publish         *PublishResult `json:"publish,omitempty"`
}
