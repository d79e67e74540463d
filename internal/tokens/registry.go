package tokens

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

var ErrUnknownToken = errors.New("unknown token")

// Registry is the immutable symbol -> token table loaded at startup.
type Registry struct {
	ordered  []Token
	bySymbol map[string]Token
	native   Token
	wrapped  common.Address
}

// NewRegistry validates the list: symbols must be unique and exactly one
// entry must be the native sentinel. wrapped is the contract that stands in
// for the native entry in every contract call.
func NewRegistry(list []Token, wrapped common.Address) (*Registry, error) {
	if wrapped == (common.Address{}) {
		return nil, errors.New("tokens: wrapped native address is empty")
	}

	r := &Registry{
		ordered:  make([]Token, 0, len(list)),
		bySymbol: make(map[string]Token, len(list)),
		wrapped:  wrapped,
	}

	natives := 0
	for _, t := range list {
		key := t.Key()
		if key == "" {
			return nil, errors.New("tokens: empty symbol")
		}
		if _, dup := r.bySymbol[key]; dup {
			return nil, errors.Newf("tokens: duplicate symbol %q", t.Symbol)
		}
		if t.IsNative() {
			natives++
			r.native = t
		}
		r.bySymbol[key] = t
		r.ordered = append(r.ordered, t)
	}

	if natives != 1 {
		return nil, errors.Newf("tokens: expected exactly one native entry, got %d", natives)
	}
	return r, nil
}

func (r *Registry) All() []Token {
	out := make([]Token, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Native() Token { return r.native }

func (r *Registry) Wrapped() common.Address { return r.wrapped }

func (r *Registry) BySymbol(symbol string) (Token, error) {
	t, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Token{}, errors.Wrapf(ErrUnknownToken, "symbol %q", symbol)
	}
	return t, nil
}

// ContractAddress returns the address to hand to a contract expecting an
// ERC20: the wrapped token for the native entry, the token's own otherwise.
func (r *Registry) ContractAddress(t Token) common.Address {
	if t.IsNative() {
		return r.wrapped
	}
	return t.Address
}

// IsWrapped reports whether t is the wrapped native token itself.
func (r *Registry) IsWrapped(t Token) bool {
	return !t.IsNative() && t.Address == r.wrapped
}

// SameAsset is true when a and b reach contracts as the same address, which
// includes the native entry paired with its wrapped token.
func (r *Registry) SameAsset(a, b Token) bool {
	return a.Key() == b.Key() || r.ContractAddress(a) == r.ContractAddress(b)
}
