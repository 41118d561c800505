package application

import (
	"github.com/Builder-Lawyers/store-builder/internal/application/commands/lifecycle"
	"github.com/Builder-Lawyers/store-builder/internal/application/progress"
	"github.com/Builder-Lawyers/store-builder/internal/application/query"
)

type Collection struct {
	CreateStore   *lifecycle.CreateStore
	RedeployStore *lifecycle.RedeployStore
	DeleteStore   *lifecycle.DeleteStore
	GetStore      *query.GetStore
	ListPages     *query.ListPages
	CheckDomain   *query.CheckDomain
	Progress      *progress.Registry
}
