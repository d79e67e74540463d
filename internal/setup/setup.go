package setup

import (
	"context"

	clientconfig "github.com/quantumauth-io/dex-client/cmd/dex-client/config"
	"github.com/quantumauth-io/dex-client/internal/actions"
	"github.com/quantumauth-io/dex-client/internal/assets"
	"github.com/quantumauth-io/dex-client/internal/assistant"
	"github.com/quantumauth-io/dex-client/internal/chain"
	clienthttp "github.com/quantumauth-io/dex-client/internal/http"
	"github.com/quantumauth-io/dex-client/internal/httpui"
	"github.com/quantumauth-io/dex-client/internal/positions"
	"github.com/quantumauth-io/dex-client/internal/quote"
	"github.com/quantumauth-io/dex-client/internal/session"
	"github.com/quantumauth-io/dex-client/internal/tokens"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

func Run(ctx context.Context, build BuildInfo) error {
	log.Info("dex-client",
		"version", build.Version,
		"commit", build.Commit,
		"build_date", build.BuildDate,
	)

	// ---- Config
	cfg, err := clientconfig.Load()
	if err != nil {
		return err
	}
	deployment, err := cfg.ContractDeployment()
	if err != nil {
		return err
	}
	list, err := cfg.TokenList()
	if err != nil {
		return err
	}
	registry, err := tokens.NewRegistry(list, deployment.WrappedNative)
	if err != nil {
		return err
	}

	// ---- Wallet
	provider, err := openWallet(cfg.ClientSettings.WalletPath)
	if err != nil {
		return err
	}

	// ---- Chain
	client, err := chain.Dial(ctx, cfg.Chain.RPCURL, provider, cfg.Chain.ProbeTimeout)
	if err != nil {
		return err
	}
	defer client.Close()
	client.SetPollInterval(cfg.Chain.ReceiptPoll)

	log.Info("chain ready", "rpc", cfg.Chain.RPCURL, "chain_id", client.ChainID().String(), "fee_tier", cfg.Quote.FeeTier)

	if mismatches := assets.Verify(ctx, client, registry.All()); len(mismatches) > 0 {
		log.Warn("token list differs from chain", "count", len(mismatches))
	}

	// ---- Domain
	engine := quote.NewEngine(client, registry, deployment.Quoter, cfg.Quote.FeeTier)
	sess := session.New(ctx, session.Deps{
		Wallet:    provider,
		Registry:  registry,
		Balances:  client,
		Quotes:    engine,
		Builder:   actions.NewBuilder(registry, deployment, cfg.Quote.FeeTier),
		Runner:    actions.NewRunner(client),
		Positions: positions.NewTracker(client, deployment.PositionManager),
		Debounce:  cfg.Quote.Debounce,
	})
	defer sess.Close()

	asst := assistant.New(cfg.Assistant.APIKey)
	if !asst.Enabled() {
		log.Info("assistant disabled", "hint", "set DEX_ASSISTANT_API_KEY to enable")
	}

	// ---- HTTP server
	ui, err := httpui.Handler()
	if err != nil {
		return err
	}
	handler := clienthttp.NewHandler(sess, registry, engine, asst, client.ChainID())
	router := clienthttp.NewRouter(handler, cfg.ClientSettings.AllowedOrigins, ui)

	return clienthttp.Serve(ctx, cfg.ClientSettings.LocalHost, cfg.ClientSettings.Port, router)
}
