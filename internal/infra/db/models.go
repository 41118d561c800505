package db

import (
	"encoding/json"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/google/uuid"
)

type Store struct {
	ID               uint64                  `db:"id" json:"id"`
	UUID             uuid.UUID               `db:"uuid" json:"uuid"`
	Name             string                  `db:"name" json:"name"`
	Domain           string                  `db:"domain" json:"domain"`
	Subdomain        string                  `db:"subdomain" json:"subdomain"`
	Country          string                  `db:"country" json:"country"`
	Language         string                  `db:"language" json:"language"`
	Currency         string                  `db:"currency" json:"currency"`
	Status           consts.StoreStatus      `db:"status" json:"status"`
	DeploymentStatus consts.DeploymentStatus `db:"deployment_status" json:"deploymentStatus"`
	Config           json.RawMessage         `db:"config" json:"config,omitempty"`
	LastDeployError  *string                 `db:"last_deploy_error" json:"lastDeployError,omitempty"`
	CreatedAt        time.Time               `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time               `db:"updated_at" json:"updatedAt"`
	DeployedAt       *time.Time              `db:"deployed_at" json:"deployedAt,omitempty"`
}

// StoreConfig is the presentation part of a store. The orchestrator never looks inside;
// the site generator does.
type StoreConfig struct {
	Branding Branding          `json:"branding"`
	Legal    LegalContacts     `json:"legal"`
	PageSet  []string          `json:"pageSet,omitempty"`
	Commerce map[string]string `json:"commerce,omitempty"`
}

type Branding struct {
	LogoURL      string `json:"logoUrl,omitempty"`
	PrimaryColor string `json:"primaryColor,omitempty"`
	Tagline      string `json:"tagline,omitempty"`
}

type LegalContacts struct {
	CompanyName string `json:"companyName,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Presentation decodes Config; a malformed or empty config yields the zero value.
func (s *Store) Presentation() StoreConfig {
	var cfg StoreConfig
	if len(s.Config) == 0 {
		return cfg
	}
	_ = json.Unmarshal(s.Config, &cfg)
	return cfg
}

type StorePage struct {
	ID        uint64    `db:"id" json:"id"`
	StoreID   uint64    `db:"store_id" json:"storeId"`
	Slug      string    `db:"slug" json:"slug"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type StoreSetting struct {
	StoreID uint64 `db:"store_id"`
	Key     string `db:"key"`
	Value   string `db:"value"`
}
