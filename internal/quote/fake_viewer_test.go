package quote

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type viewCall struct {
	Contract common.Address
	Method   string
	Args     []any
}

type fakeViewer struct {
	mu    sync.Mutex
	calls []viewCall
	out   []any
	err   error
}

func (f *fakeViewer) CallView(_ context.Context, contract common.Address, _ *abi.ABI, method string, args ...any) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, viewCall{Contract: contract, Method: method, Args: args})
	return f.out, f.err
}

func (f *fakeViewer) Calls() []viewCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]viewCall(nil), f.calls...)
}
