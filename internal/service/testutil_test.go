package service

import (
	"context"
	"sync"
	"testing"

	"anjoman/internal/database"
	"anjoman/internal/external"
	"anjoman/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepos(t *testing.T) (*repository.Repositories, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return repository.NewRepositories(&database.DB{DB: db}), mock
}

type fakeGateway struct {
	mu           sync.Mutex
	requestCalls int
	verifyCalls  int

	session    *external.PaymentSession
	requestErr error

	verifyResult *external.VerifyResult
	verifyErr    error
}

func (g *fakeGateway) RequestPayment(_ context.Context, _ int64, _ string, _ map[string]string) (*external.PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requestCalls++
	if g.requestErr != nil {
		return nil, g.requestErr
	}
	return g.session, nil
}

func (g *fakeGateway) VerifyPayment(_ context.Context, _ string, _ int64) (*external.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.verifyResult, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) published(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}
