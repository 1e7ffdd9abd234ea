package testutil

import (
	"context"
	"sync"

	"github.com/TeamTenuki/livewatch/parallel"
	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/stream"
)

var _ provider.Client = &Provider{}

// Provider is a scripted provider.Client. Channels are live when set so with
// SetLive, failing when set so with Fail and offline otherwise. Channels are
// queried one at a time in the given order, so a query blocked with Block
// starts only after the ones before it completed.
type Provider struct {
	provider.Unsupported

	mu       sync.Mutex
	caps     provider.Capabilities
	live     map[string]stream.Details
	failing  map[string]error
	metadata map[string]stream.Details
	blocking map[string]bool
	hanging  chan string
	down     error
	panics   bool

	onlineCalls  int
	offlineCalls int
}

func NewProvider(name string) *Provider {
	return &Provider{
		Unsupported: provider.Unsupported{Name: name},
		caps:        provider.Capabilities{Name: name, BaseURL: "https://" + name + ".example/"},
		live:        make(map[string]stream.Details),
		failing:     make(map[string]error),
		metadata:    make(map[string]stream.Details),
		blocking:    make(map[string]bool),
		hanging:     make(chan string, 16),
	}
}

func (p *Provider) Capabilities() provider.Capabilities {
	return p.caps
}

func (p *Provider) Identify(channel string) stream.Identifier {
	return stream.NewFoldedIdentifier(p.caps.Name, channel)
}

func (p *Provider) StreamURL(id string) string {
	return p.caps.BaseURL + id
}

// SetLive makes the channel come back as live with the given details.
func (p *Provider) SetLive(channel string, d stream.Details) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.failing, channel)
	p.live[channel] = d
}

// SetOffline makes the channel come back as not found.
func (p *Provider) SetOffline(channel string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.failing, channel)
	delete(p.live, channel)
}

// SetMetadata is applied to the channel by RefreshOffline.
func (p *Provider) SetMetadata(channel string, d stream.Details) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metadata[channel] = d
}

// Fail makes the query of a single channel fail with err.
func (p *Provider) Fail(channel string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failing[channel] = err
}

// SetDown makes the whole RefreshOnline call fail with err. Nil brings it back.
func (p *Provider) SetDown(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.down = err
}

// SetPanics makes RefreshOnline panic.
func (p *Provider) SetPanics(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.panics = v
}

// Block makes queries of the channel hang until their context is done.
// The channel name is sent on the returned channel whenever such a query starts.
func (p *Provider) Block(channel string) <-chan string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.blocking[channel] = true

	return p.hanging
}

// Calls returns how many times RefreshOnline and RefreshOffline were called.
func (p *Provider) Calls() (online, offline int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.onlineCalls, p.offlineCalls
}

func (p *Provider) RefreshOnline(c context.Context, ms []*stream.Model) (provider.Batch, error) {
	p.mu.Lock()
	p.onlineCalls++

	if p.panics {
		p.mu.Unlock()
		panic("scripted provider panic")
	}

	if p.down != nil {
		err := p.down
		p.mu.Unlock()
		return provider.Batch{}, err
	}

	p.mu.Unlock()

	outcomes := parallel.RunAll(c, ms, p.query, parallel.Options{Limit: 1})

	results := make([]stream.QueryResult, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			results = append(results, stream.Errored(o.Item.Identifier(), o.Err))
			continue
		}
		results = append(results, o.Value)
	}

	return provider.Apply(ms, results), nil
}

func (p *Provider) query(c context.Context, m *stream.Model) (stream.QueryResult, error) {
	id := m.Identifier()

	p.mu.Lock()
	blocked := p.blocking[id.ChannelID]
	err, failing := p.failing[id.ChannelID]
	d, live := p.live[id.ChannelID]
	p.mu.Unlock()

	switch {
	case blocked:
		p.hanging <- id.ChannelID
		<-c.Done()
		return stream.QueryResult{}, c.Err()
	case failing:
		return stream.Errored(id, err), nil
	case live:
		return stream.Succeeded(id, d), nil
	default:
		return stream.Missing(id), nil
	}
}

func (p *Provider) RefreshOffline(c context.Context, ms []*stream.Model) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.offlineCalls++

	for _, m := range ms {
		if d, ok := p.metadata[m.Identifier().ChannelID]; ok {
			m.SetMetadata(d)
		}
	}

	return nil
}
