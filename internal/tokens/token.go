package tokens

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/constants"
)

// Token is a statically configured asset. The native currency has no
// contract and carries constants.NativeAddr as its address.
type Token struct {
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	LogoURI  string         `json:"logoUri,omitempty"`
}

func (t Token) IsNative() bool {
	return t.Address == common.HexToAddress(constants.NativeAddr)
}

func (t Token) Key() string {
	return strings.ToUpper(strings.TrimSpace(t.Symbol))
}
