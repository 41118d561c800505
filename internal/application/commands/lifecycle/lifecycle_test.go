package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/allocator"
	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/errs"
	"github.com/Builder-Lawyers/store-builder/internal/application/publish"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
	"github.com/Builder-Lawyers/store-builder/internal/infra/runner"
	"github.com/Builder-Lawyers/store-builder/internal/infra/sitegen"
	"github.com/Builder-Lawyers/store-builder/internal/infra/vcs"
	"github.com/Builder-Lawyers/store-builder/internal/testutil"
	"github.com/stretchr/testify/require"
)

const baseDomain = "stores.test"

type fixture struct {
	journal  *testutil.Journal
	repo     *testutil.MemoryStoreRepo
	files    *sitegen.Generator
	vcs      *testutil.FakeVCS
	hosting  *testutil.FakeHosting
	create   *CreateStore
	redeploy *RedeployStore
	delete   *DeleteStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	j := &testutil.Journal{}
	repo := testutil.NewMemoryStoreRepo()
	repo.Journal = j
	files, err := sitegen.NewGenerator(t.TempDir())
	require.NoError(t, err)

	fakeVCS := &testutil.FakeVCS{Journal: j}
	hosting := &testutil.FakeHosting{Journal: j, Fail: map[string]error{}}
	pipeline := publish.NewPipeline(
		publish.Config{VerifyAttempts: 1, VerifyInterval: time.Millisecond},
		fakeVCS, hosting, &testutil.FakeVerifier{Journal: j, Live: true},
	)
	locks := NewLocks()
	deployer := NewDeployer(repo, files, pipeline)

	return &fixture{
		journal:  j,
		repo:     repo,
		files:    files,
		vcs:      fakeVCS,
		hosting:  hosting,
		create:   NewCreateStore(CreateConfig{BaseDomain: baseDomain}, repo, files, allocator.NewAllocator(repo), deployer, locks),
		redeploy: NewRedeployStore(repo, files, deployer, locks),
		delete:   NewDeleteStore(repo, files, fakeVCS, hosting, locks),
	}
}

func request(domain string) dto.CreateStoreRequest {
	return dto.CreateStoreRequest{
		Name:     "Acme",
		Domain:   domain,
		Country:  "us",
		Language: "en",
		Currency: "usd",
	}
}

func TestCreateDeploysStore(t *testing.T) {
	f := newFixture(t)
	rec := &testutil.Recorder{}

	result, err := f.create.Handle(context.Background(), request("Shop.Example.com"), rec.Func())
	require.NoError(t, err)
	require.False(t, result.Failed())
	require.True(t, result.Publish.IsLive)
	require.Equal(t, "https://shop.example.com", result.Publish.URL)

	stored, err := f.repo.GetStore(context.Background(), result.Store.ID)
	require.NoError(t, err)
	require.Equal(t, "shop.example.com", stored.Domain)
	require.Equal(t, "acme", stored.Subdomain)
	require.Equal(t, "US", stored.Country)
	require.Equal(t, "USD", stored.Currency)
	require.Equal(t, consts.StoreStatusActive, stored.Status)
	require.Equal(t, consts.DeploymentStatusDeployed, stored.DeploymentStatus)
	require.NotNil(t, stored.DeployedAt)
	require.Equal(t, []consts.DeploymentStatus{
		consts.DeploymentStatusPending,
		consts.DeploymentStatusDeploying,
		consts.DeploymentStatusDeployed,
	}, f.repo.Statuses(stored.ID))

	require.FileExists(t, filepath.Join(f.files.Root(), "shop.example.com", "index.html"))
	pages, err := f.repo.ListPages(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Len(t, pages, 6)

	percents := rec.Percents()
	require.Equal(t, 2, percents[0])
	require.Equal(t, 100, percents[len(percents)-1])
}

func TestCreateWithoutDomainDerivesOne(t *testing.T) {
	f := newFixture(t)

	result, err := f.create.Handle(context.Background(), request(""), nil)
	require.NoError(t, err)
	require.Equal(t, "acme."+baseDomain, result.Store.Domain)
	require.True(t, f.files.Exists("acme."+baseDomain))
}

func TestCreateStoresBareDomainForWWW(t *testing.T) {
	f := newFixture(t)

	result, err := f.create.Handle(context.Background(), request("www.Acme-Shop.com"), nil)
	require.NoError(t, err)
	require.False(t, result.Failed())
	require.Equal(t, "acme-shop.com", result.Store.Domain)
	require.Equal(t, "https://acme-shop.com", result.Publish.URL)
	require.FileExists(t, filepath.Join(f.files.Root(), "acme-shop.com", "index.html"))
	require.Contains(t, f.journal.Entries(), "hosting.alias acme-shop.com")

	_, err = f.create.Handle(context.Background(), request("acme-shop.com"), nil)
	var conflict errs.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.create.Handle(context.Background(), dto.CreateStoreRequest{Name: "  ", Domain: "not a domain", Country: "USA"}, nil)
	var validationErr errs.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.ElementsMatch(t, []string{"name", "language", "currency"}, validationErr.Missing)
	require.Contains(t, validationErr.Invalid, "domain")
	require.Contains(t, validationErr.Invalid, "country")
	require.Zero(t, f.repo.Count())
	require.Empty(t, f.journal.Entries())
}

func TestCreateDomainConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.Put(db.Store{Name: "Other", Domain: "taken.example.com", Subdomain: "other"})

	_, err := f.create.Handle(ctx, request("TAKEN.example.com"), nil)
	var conflict errs.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, consts.ConflictDomain, conflict.Kind)

	require.NoError(t, os.MkdirAll(filepath.Join(f.files.Root(), "leftover.example.com"), 0o755))
	_, err = f.create.Handle(ctx, request("leftover.example.com"), nil)
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, consts.ConflictFilesystem, conflict.Kind)

	req := request("fresh.example.com")
	req.Subdomain = "Other"
	_, err = f.create.Handle(ctx, req, nil)
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, consts.ConflictSubdomain, conflict.Kind)

	require.Equal(t, 1, f.repo.Count())
}

func TestConcurrentCreatesGetDistinctSubdomains(t *testing.T) {
	f := newFixture(t)

	const n = 8
	results := make([]*dto.CreateResult, n)
	failures := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], failures[i] = f.create.Handle(context.Background(), request(""), nil)
		}(i)
	}
	wg.Wait()

	subdomains := map[string]bool{}
	domains := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, failures[i])
		require.False(t, subdomains[results[i].Store.Subdomain])
		require.False(t, domains[results[i].Store.Domain])
		subdomains[results[i].Store.Subdomain] = true
		domains[results[i].Store.Domain] = true
	}
	require.Equal(t, n, f.repo.Count())
}

func TestCreateRetriesWhenSubdomainTakenAtInsert(t *testing.T) {
	f := newFixture(t)
	once := sync.Once{}
	f.repo.InsertHook = func(store *db.Store) {
		once.Do(func() {
			f.repo.Put(db.Store{Name: "Racer", Domain: "racer.example.com", Subdomain: store.Subdomain})
		})
	}

	result, err := f.create.Handle(context.Background(), request(""), nil)
	require.NoError(t, err)
	require.NotEqual(t, "acme", result.Store.Subdomain)
	require.Equal(t, 2, f.repo.Count())
}

func TestCreatePipelineFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.hosting.Fail["alias"] = errors.New("alias limit reached")

	result, err := f.create.Handle(context.Background(), request("shop.example.com"), nil)
	require.NoError(t, err)
	require.True(t, result.Failed())
	require.Nil(t, result.Publish)

	var stageErr errs.StageError
	require.ErrorAs(t, result.PipelineErr, &stageErr)
	require.Equal(t, consts.StageAlias, stageErr.Stage)

	stored, err := f.repo.GetStore(context.Background(), result.Store.ID)
	require.NoError(t, err)
	require.Equal(t, consts.DeploymentStatusFailed, stored.DeploymentStatus)
	require.Equal(t, consts.StoreStatusFailed, stored.Status)
	require.NotNil(t, stored.LastDeployError)
	require.Contains(t, *stored.LastDeployError, "alias limit reached")
}

func TestCreateFailsWhenDeployingCannotBeRecorded(t *testing.T) {
	f := newFixture(t)
	f.repo.UpdateErr = map[consts.DeploymentStatus]error{consts.DeploymentStatusDeploying: errors.New("connection reset")}

	result, err := f.create.Handle(context.Background(), request("shop.example.com"), nil)
	require.NoError(t, err)
	require.True(t, result.Failed())
	require.ErrorContains(t, result.PipelineErr, "connection reset")

	stored, err := f.repo.GetStore(context.Background(), result.Store.ID)
	require.NoError(t, err)
	require.Equal(t, consts.DeploymentStatusFailed, stored.DeploymentStatus)
	require.Equal(t, consts.StoreStatusFailed, stored.Status)
	require.Contains(t, *stored.LastDeployError, "connection reset")
	require.NotContains(t, f.journal.Entries(), "vcs.commit shop.example.com")
}

func TestCreateFailsWhenDeployedCannotBeRecorded(t *testing.T) {
	f := newFixture(t)
	f.repo.UpdateErr = map[consts.DeploymentStatus]error{consts.DeploymentStatusDeployed: errors.New("connection reset")}

	result, err := f.create.Handle(context.Background(), request("shop.example.com"), nil)
	require.NoError(t, err)
	require.True(t, result.Failed())
	require.NotNil(t, result.Publish)

	stored, err := f.repo.GetStore(context.Background(), result.Store.ID)
	require.NoError(t, err)
	require.Equal(t, consts.DeploymentStatusFailed, stored.DeploymentStatus)
	require.Equal(t, []consts.DeploymentStatus{
		consts.DeploymentStatusPending,
		consts.DeploymentStatusDeploying,
		consts.DeploymentStatusFailed,
	}, f.repo.Statuses(stored.ID))
}

func TestRedeploySkipsDeployedStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.create.Handle(ctx, request("shop.example.com"), nil)
	require.NoError(t, err)
	before := len(f.journal.Entries())

	result, err := f.redeploy.Handle(ctx, created.Store.ID, false, nil)
	require.NoError(t, err)
	require.True(t, result.AlreadyDeployed)
	require.Len(t, f.journal.Entries(), before)

	result, err = f.redeploy.Handle(ctx, created.Store.ID, true, nil)
	require.NoError(t, err)
	require.False(t, result.AlreadyDeployed)
	require.NotNil(t, result.Publish)
	require.Greater(t, len(f.journal.Entries()), before)
}

func TestRedeployRebuildsMissingFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.create.Handle(ctx, request("shop.example.com"), nil)
	require.NoError(t, err)
	require.NoError(t, f.files.Remove("shop.example.com"))

	result, err := f.redeploy.Handle(ctx, created.Store.ID, false, nil)
	require.NoError(t, err)
	require.False(t, result.AlreadyDeployed)
	require.True(t, f.files.Exists("shop.example.com"))
}

func TestRedeployFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.vcs.CommitErr = errors.New("remote hung up")
	created, err := f.create.Handle(ctx, request("shop.example.com"), nil)
	require.NoError(t, err)
	require.True(t, created.Failed())

	_, err = f.redeploy.Handle(ctx, created.Store.ID, false, nil)
	var stageErr errs.StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, consts.StageCommit, stageErr.Stage)

	stored, err := f.repo.GetStore(ctx, created.Store.ID)
	require.NoError(t, err)
	require.Equal(t, consts.DeploymentStatusFailed, stored.DeploymentStatus)

	f.vcs.CommitErr = nil
	_, err = f.redeploy.Handle(ctx, created.Store.ID, false, nil)
	require.NoError(t, err)
	stored, err = f.repo.GetStore(ctx, created.Store.ID)
	require.NoError(t, err)
	require.Equal(t, consts.DeploymentStatusDeployed, stored.DeploymentStatus)
	require.Nil(t, stored.LastDeployError)
}

func TestRedeployUnknownStore(t *testing.T) {
	f := newFixture(t)
	_, err := f.redeploy.Handle(context.Background(), 42, false, nil)
	var notFound errs.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDeleteRunsStepsInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.create.Handle(ctx, request("shop.example.com"), nil)
	require.NoError(t, err)
	before := len(f.journal.Entries())

	result, err := f.delete.Handle(ctx, created.Store.ID)
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	require.False(t, result.FallbackUsed)

	require.Equal(t, []string{
		"vcs.remove shop.example.com",
		"hosting.alias_rm shop.example.com",
		"hosting.domain_rm shop.example.com",
		"hosting.project_rm shop.example.com",
		"hosting.purge shop.example.com",
		"repo.dependents 1",
		"repo.delete 1",
	}, f.journal.Entries()[before:])
	require.Equal(t, "store(acme): delete shop.example.com", f.vcs.Messages[len(f.vcs.Messages)-1])
	require.False(t, f.files.Exists("shop.example.com"))
	require.Zero(t, f.repo.Count())
}

func TestDeleteKeepsFilesUntilHostingTeardownWithGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	root := t.TempDir()
	_, err := runner.NewOSExecutor(10*time.Second).Run(ctx, runner.Command{Name: "git", Args: []string{"init", "-q"}, Dir: root})
	require.NoError(t, err)

	j := &testutil.Journal{}
	repo := testutil.NewMemoryStoreRepo()
	repo.Journal = j
	files, err := sitegen.NewGenerator(root)
	require.NoError(t, err)
	git := vcs.NewGit(vcs.Config{
		Binary:       "git",
		RepoDir:      root,
		AuthorName:   "Store Builder",
		AuthorEmail:  "builder@stores.test",
		Timeout:      10 * time.Second,
		PushDisabled: true,
	}, runner.NewOSExecutor(10*time.Second))
	hosting := &testutil.FakeHosting{Journal: j, Fail: map[string]error{}}
	pipeline := publish.NewPipeline(
		publish.Config{VerifyAttempts: 1, VerifyInterval: time.Millisecond},
		git, hosting, &testutil.FakeVerifier{Journal: j, Live: true},
	)
	locks := NewLocks()
	deployer := NewDeployer(repo, files, pipeline)
	create := NewCreateStore(CreateConfig{BaseDomain: baseDomain}, repo, files, allocator.NewAllocator(repo), deployer, locks)
	remove := NewDeleteStore(repo, files, git, hosting, locks)

	created, err := create.Handle(ctx, request("shop.example.com"), nil)
	require.NoError(t, err)
	require.False(t, created.Failed())

	index := filepath.Join(root, "shop.example.com", "index.html")
	present := map[string]bool{}
	hosting.OnCall = func(op string, _ dto.HostedSite) {
		_, statErr := os.Stat(index)
		present[op] = statErr == nil
	}

	result, err := remove.Handle(ctx, created.Store.ID)
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	require.Equal(t, map[string]bool{
		"alias_rm":   true,
		"domain_rm":  true,
		"project_rm": true,
		"purge":      true,
	}, present)
	require.NoDirExists(t, filepath.Join(root, "shop.example.com"))

	tracked, err := runner.NewOSExecutor(10*time.Second).Run(ctx, runner.Command{Name: "git", Args: []string{"ls-files"}, Dir: root})
	require.NoError(t, err)
	require.Empty(t, tracked.Stdout)
}

func TestDeleteHostingFailureStillRemovesFilesAndRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.create.Handle(ctx, request("shop.example.com"), nil)
	require.NoError(t, err)
	f.hosting.Fail["alias_rm"] = errors.New("timeout")
	f.hosting.Fail["domain_rm"] = errors.New("timeout")
	f.vcs.RemoveErr = errors.New("push rejected")

	result, err := f.delete.Handle(ctx, created.Store.ID)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 3)
	require.Contains(t, result.Warnings[0], "vcs")
	require.False(t, f.files.Exists("shop.example.com"))
	require.Zero(t, f.repo.Count())
}

func TestDeleteFallsBackWhenRecordRemovalFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.create.Handle(ctx, request("shop.example.com"), nil)
	require.NoError(t, err)
	f.repo.DeleteStoreErr = errors.New("deadlock detected")

	result, err := f.delete.Handle(ctx, created.Store.ID)
	require.NoError(t, err)
	require.True(t, result.FallbackUsed)
	require.Contains(t, f.journal.Entries(), "repo.remove 1")
	require.Zero(t, f.repo.Count())

	f2 := newFixture(t)
	created, err = f2.create.Handle(ctx, request("shop.example.com"), nil)
	require.NoError(t, err)
	f2.repo.DeleteStoreErr = errors.New("deadlock detected")
	f2.repo.RemoveStoreErr = errors.New("connection lost")

	result, err = f2.delete.Handle(ctx, created.Store.ID)
	var teardownErr errs.TeardownError
	require.ErrorAs(t, err, &teardownErr)
	require.Equal(t, consts.TeardownRecord, teardownErr.Step)
	require.True(t, result.FallbackUsed)
}

func TestDefaultPagesFollowPageSet(t *testing.T) {
	store := &db.Store{ID: 3, Name: "Acme", Config: db.ConfigToRawMessage(db.StoreConfig{
		PageSet: []string{"contact", "refund-policy"},
		Legal:   db.LegalContacts{CompanyName: "Acme LLC", Email: "hi@acme.test"},
	})}

	pages := DefaultPages(store)
	require.Len(t, pages, 3)
	require.Equal(t, "home", pages[0].Slug)
	require.Equal(t, "contact", pages[1].Slug)
	require.Equal(t, "Email: hi@acme.test", pages[1].Body)
	require.Equal(t, 2, pages[2].Position)
	require.Contains(t, pages[2].Body, "Acme LLC")

	require.Len(t, DefaultPages(&db.Store{Name: "Acme"}), 6)
}

func TestLocksSerializeSameStore(t *testing.T) {
	locks := NewLocks()
	unlock := locks.Lock(1)

	acquired := make(chan struct{})
	go func() {
		release := locks.Lock(1)
		close(acquired)
		release()
	}()

	// another store is not blocked
	locks.Lock(2)()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired
	require.Eventually(t, func() bool { return locks.held() == 0 }, time.Second, time.Millisecond)
}
