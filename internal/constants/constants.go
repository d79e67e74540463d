package constants

import "time"

const (
	AppName    = "dex-client"
	WalletFile = "wallet.json"
	ConfigFile = "config"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	// NativeAddr stands in for the chain's native currency. It is never a
	// deployed contract.
	NativeAddr = "0x0000000000000000000000000000000000000000"

	// AAD const for the encrypted wallet key
	AADConstant = "dex-client:wallet:v1"

	// DefaultFeeTier is the pool fee (hundredths of a bip) used for every
	// quote and swap leg.
	DefaultFeeTier uint32 = 3000

	QuoteDebounce = 500 * time.Millisecond

	// BalancePrecision is the number of fractional digits shown for balances
	// and quotes.
	BalancePrecision = 6

	// PositionFeeDecimals scales tokensOwed values of a position for display.
	PositionFeeDecimals = 18

	ReceiptPollInterval = 2 * time.Second

	MaxNotifications = 20
)
