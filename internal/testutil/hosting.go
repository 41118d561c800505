package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/events"
)

// FakeHosting fails the operations named in Fail: ensure, deploy, alias, alias_rm,
// domain_rm, project_rm, purge.
type FakeHosting struct {
	Journal       *Journal
	Fail          map[string]error
	DeploymentURL string
	// OnCall runs before each operation is journaled.
	OnCall func(op string, site dto.HostedSite)
}

func (f *FakeHosting) call(op string, site dto.HostedSite) error {
	if f.OnCall != nil {
		f.OnCall(op, site)
	}
	f.Journal.Add("hosting." + op + " " + site.Domain)
	return f.Fail[op]
}

func (f *FakeHosting) EnsureDomain(_ context.Context, site dto.HostedSite) error {
	return f.call("ensure", site)
}

func (f *FakeHosting) Deploy(_ context.Context, site dto.HostedSite) (string, error) {
	if err := f.call("deploy", site); err != nil {
		return "", err
	}
	if f.DeploymentURL == "" {
		return "https://" + site.Project + "-abc123.hosting.test", nil
	}
	return f.DeploymentURL, nil
}

func (f *FakeHosting) Alias(_ context.Context, _ string, site dto.HostedSite) error {
	return f.call("alias", site)
}

func (f *FakeHosting) RemoveAlias(_ context.Context, site dto.HostedSite) error {
	return f.call("alias_rm", site)
}

func (f *FakeHosting) RemoveDomain(_ context.Context, site dto.HostedSite) error {
	return f.call("domain_rm", site)
}

func (f *FakeHosting) RemoveProject(_ context.Context, site dto.HostedSite) error {
	return f.call("project_rm", site)
}

func (f *FakeHosting) PurgeCache(_ context.Context, site dto.HostedSite) error {
	return f.call("purge", site)
}

type FakeVCS struct {
	Journal   *Journal
	CommitErr error
	RemoveErr error

	mu       sync.Mutex
	Messages []string
}

func (f *FakeVCS) CommitAndPush(_ context.Context, site dto.HostedSite, message string) error {
	f.Journal.Add("vcs.commit " + site.Key)
	f.mu.Lock()
	f.Messages = append(f.Messages, message)
	f.mu.Unlock()
	return f.CommitErr
}

func (f *FakeVCS) Remove(_ context.Context, site dto.HostedSite, message string) error {
	f.Journal.Add("vcs.remove " + site.Key)
	f.mu.Lock()
	f.Messages = append(f.Messages, message)
	f.mu.Unlock()
	return f.RemoveErr
}

type FakeVerifier struct {
	Journal *Journal
	Live    bool
}

func (f *FakeVerifier) VerifyLive(_ context.Context, domain string, _ int, _ time.Duration) bool {
	f.Journal.Add("verify " + domain)
	return f.Live
}

type FakeChecker struct {
	Available map[string]bool
	Err       error
}

func (f *FakeChecker) CheckAvailability(_ context.Context, domain string) (bool, error) {
	return f.Available[domain], f.Err
}

// Recorder collects progress callbacks.
type Recorder struct {
	mu     sync.Mutex
	Events []events.Progress
}

func (r *Recorder) Func() events.ProgressFunc {
	return func(p events.Progress) {
		r.mu.Lock()
		r.Events = append(r.Events, p)
		r.mu.Unlock()
	}
}

func (r *Recorder) Percents() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Percent)
	}
	return out
}
