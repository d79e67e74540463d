package quote

import (
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

const (
	addrSize = common.AddressLength
	feeSize  = 3
	maxFee   = 1<<24 - 1
)

// EncodePath packs a multi-hop route as token(20) | fee(3) | token(20) | ...
// fees[i] is the pool fee between hops[i] and hops[i+1].
func EncodePath(hops []common.Address, fees []uint32) ([]byte, error) {
	if len(hops) < 2 {
		return nil, errors.Newf("path needs at least two tokens, got %d", len(hops))
	}
	if len(fees) != len(hops)-1 {
		return nil, errors.Newf("path with %d tokens needs %d fees, got %d", len(hops), len(hops)-1, len(fees))
	}

	out := make([]byte, 0, len(hops)*addrSize+len(fees)*feeSize)
	for i, hop := range hops {
		out = append(out, hop.Bytes()...)
		if i == len(fees) {
			break
		}
		fee := fees[i]
		if fee > maxFee {
			return nil, errors.Newf("fee %d does not fit in 3 bytes", fee)
		}
		out = append(out, byte(fee>>16), byte(fee>>8), byte(fee))
	}
	return out, nil
}
