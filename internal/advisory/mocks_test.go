package advisory

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Veraticus/shopkeep/internal/llm"
	"github.com/Veraticus/shopkeep/internal/search"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(llm.Response), args.Error(1)
}

type mockSearch struct {
	mock.Mock
	mu sync.Mutex
}

func (m *mockSearch) Search(ctx context.Context, q search.Query) (search.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, q)
	return args.Get(0).(search.Response), args.Error(1)
}

func testPayload() *Payload {
	payload, err := DefaultPayload()
	if err != nil {
		panic(err)
	}
	return payload
}
