package wallet

import (
	"crypto/ecdsa"
	"crypto/rand"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/quantumauth-io/dex-client/internal/constants"
	"github.com/quantumauth-io/dex-client/internal/securefile"
)

// Record is the plaintext inside the encrypted wallet file.
type Record struct {
	Version    int    `json:"version"`
	AddressHex string `json:"address"`
	PrivKeyHex string `json:"priv_key_hex"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type Store struct {
	Path string
	Opt  securefile.Options
}

// NewStore places the wallet file at path, or at the canonical config
// location when path is empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		paths, err := securefile.ConfigPathCandidates(constants.AppName, constants.WalletFile)
		if err != nil {
			return nil, err
		}
		path = paths[0]
	}
	return &Store{
		Path: path,
		Opt: securefile.Options{
			FilePerm:      constants.FilePerm,
			DirectoryPerm: constants.DirectoryPerm,
			AAD:           []byte(constants.AADConstant),
		},
	}, nil
}

func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Ensure opens the wallet file, creating a fresh key if none exists yet.
func (s *Store) Ensure(password []byte) (*Record, error) {
	rec, err := securefile.ReadJSON[Record](s.Path, password, s.Opt)
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(err, "load wallet %s", s.Path)
	}

	created, err := NewRandomRecord()
	if err != nil {
		return nil, err
	}
	if err := securefile.WriteJSON(s.Path, *created, password, s.Opt); err != nil {
		return nil, err
	}
	return created, nil
}

// Import replaces the stored key with key.
func (s *Store) Import(key *ecdsa.PrivateKey, password []byte) (*Record, error) {
	rec := recordFor(key)
	if err := securefile.WriteJSON(s.Path, *rec, password, s.Opt); err != nil {
		return nil, err
	}
	return rec, nil
}

func NewRandomRecord() (*Record, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate key")
	}
	return recordFor(key), nil
}

func recordFor(key *ecdsa.PrivateKey) *Record {
	return &Record{
		Version:    constants.SchemaV1,
		AddressHex: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivKeyHex: hexutil.Encode(crypto.FromECDSA(key))[2:],
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}
