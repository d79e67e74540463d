package setup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/quantumauth-io/dex-client/internal/wallet"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

var errNoWallet = errors.New("no wallet configured")

// openWallet unlocks the local key file, offering to create or import one
// on first run. Without a terminal there is nobody to ask for a password,
// so the client runs read-only.
func openWallet(path string) (wallet.Provider, error) {
	if !wallet.Interactive() {
		log.Warn("no terminal attached, running without a wallet")
		return wallet.Unavailable{}, nil
	}

	store, err := wallet.NewStore(path)
	if err != nil {
		return nil, err
	}

	var rec *wallet.Record
	if store.Exists() {
		pw, err := wallet.PromptPassword("Wallet password: ")
		if err != nil {
			return nil, err
		}
		defer wallet.ZeroBytes(pw)

		rec, err = store.Ensure(pw)
		if err != nil {
			return nil, err
		}
	} else {
		rec, err = firstRun(store)
		if errors.Is(err, errNoWallet) {
			log.Warn("continuing without a wallet")
			return wallet.Unavailable{}, nil
		}
		if err != nil {
			return nil, err
		}
	}

	w, err := wallet.FromRecord(rec, logConfirm)
	if err != nil {
		return nil, err
	}
	log.Info("wallet unlocked", "address", w.Address().Hex(), "path", store.Path)
	return w, nil
}

func firstRun(store *wallet.Store) (*wallet.Record, error) {
	create, err := promptYesNo(fmt.Sprintf("No wallet found at %s. Create a new one? [y/N] ", store.Path))
	if err != nil {
		return nil, err
	}

	var hexKey string
	if !create {
		imp, err := promptYesNo("Import an existing private key instead? [y/N] ")
		if err != nil {
			return nil, err
		}
		if !imp {
			return nil, errNoWallet
		}
		hexKey, err = promptSecret("Private key (hex): ")
		if err != nil {
			return nil, err
		}
	}

	pw, err := newPassword()
	if err != nil {
		return nil, err
	}
	defer wallet.ZeroBytes(pw)

	if create {
		return store.Ensure(pw)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return store.Import(key, pw)
}

func newPassword() ([]byte, error) {
	pw, err := wallet.PromptPassword("New wallet password: ")
	if err != nil {
		return nil, err
	}
	again, err := wallet.PromptPassword("Repeat password: ")
	if err != nil {
		wallet.ZeroBytes(pw)
		return nil, err
	}
	defer wallet.ZeroBytes(again)

	if !bytes.Equal(pw, again) {
		wallet.ZeroBytes(pw)
		return nil, errors.New("passwords do not match")
	}
	return pw, nil
}

// logConfirm approves every transaction the local API asks for and leaves a
// trace of it. The user already confirmed the action in the UI.
func logConfirm(_ context.Context, tx *types.Transaction) bool {
	to := ""
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	log.Info("signing transaction", "to", to, "value", tx.Value().String(), "nonce", tx.Nonce(), "gas", tx.Gas())
	return true
}
