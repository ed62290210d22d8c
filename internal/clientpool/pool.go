// Package clientpool keeps one authenticated kanidmclient.Client per
// Kanidm instance alive across reconciles, so five different identity
// controllers hitting the same instance don't each re-authenticate on
// every loop.
package clientpool

import (
	"context"
	"sync"

	"github.com/kaniop/kaniop/internal/kanidmclient"
)

// Key identifies a Kanidm instance a pooled client talks to.
type Key struct {
	Namespace string
	Name      string
}

// CredentialSource resolves the current admin credentials for a Kanidm
// instance, e.g. by reading its generated admin-password Secret.
type CredentialSource interface {
	AdminCredentials(ctx context.Context, key Key) (baseURL, username, password string, err error)
}

type entry struct {
	mu       sync.Mutex
	client   *kanidmclient.Client
	password string
}

// Pool caches authenticated clients keyed by Kanidm instance.
type Pool struct {
	creds CredentialSource

	mu      sync.Mutex
	entries map[Key]*entry
}

// New builds a Pool that resolves credentials through creds.
func New(creds CredentialSource) *Pool {
	return &Pool{creds: creds, entries: make(map[Key]*entry)}
}

// Get returns an authenticated client for key, re-authenticating if the
// pooled client has never logged in or if the admin password on record
// has since rotated.
func (p *Pool) Get(ctx context.Context, key Key) (*kanidmclient.Client, error) {
	e := p.entryFor(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	baseURL, username, password, err := p.creds.AdminCredentials(ctx, key)
	if err != nil {
		return nil, err
	}

	if e.client != nil && e.password == password {
		return e.client, nil
	}

	client := kanidmclient.New(kanidmclient.Config{BaseURL: baseURL})
	if err := client.Login(ctx, username, password); err != nil {
		return nil, err
	}
	e.client = client
	e.password = password
	return e.client, nil
}

// Invalidate drops the cached client for key, forcing the next Get to
// re-authenticate regardless of whether the password has changed.
func (p *Pool) Invalidate(key Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key)
}

func (p *Pool) entryFor(key Key) *entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		e = &entry{}
		p.entries[key] = e
	}
	return e
}
