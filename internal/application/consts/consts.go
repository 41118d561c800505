package consts

type StoreStatus string

const (
	StoreStatusSetup  StoreStatus = "setup"
	StoreStatusDraft  StoreStatus = "draft"
	StoreStatusActive StoreStatus = "active"
	StoreStatusFailed StoreStatus = "failed"
)

type DeploymentStatus string

const (
	DeploymentStatusPending   DeploymentStatus = "pending"
	DeploymentStatusDeploying DeploymentStatus = "deploying"
	DeploymentStatusDeployed  DeploymentStatus = "deployed"
	DeploymentStatusFailed    DeploymentStatus = "failed"
)

// Stage names a step of the publish pipeline or of a lifecycle workflow around it.
type Stage string

const (
	StagePages          Stage = "pages"
	StageGenerate       Stage = "generate"
	StageCommit         Stage = "commit"
	StageRegisterDomain Stage = "register_domain"
	StageDeploy         Stage = "deploy"
	StageAlias          Stage = "alias"
	StageVerify         Stage = "verify"
)

type TeardownStep string

const (
	TeardownVCS        TeardownStep = "vcs"
	TeardownHosting    TeardownStep = "hosting"
	TeardownFiles      TeardownStep = "files"
	TeardownDependents TeardownStep = "dependents"
	TeardownRecord     TeardownStep = "record"
)

type ConflictKind string

const (
	ConflictDomain     ConflictKind = "domain"
	ConflictSubdomain  ConflictKind = "subdomain"
	ConflictFilesystem ConflictKind = "filesystem"
)

type HostingProvider string

const (
	HostingProviderCLI HostingProvider = "cli"
	HostingProviderAWS HostingProvider = "aws"
)

const DefaultSubdomainPrefix = "store-"
