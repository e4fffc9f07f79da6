package keymanager

import (
	"contribution-ledger/internal/model"
	"encoding/hex"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/hyperledger/sawtooth-sdk-go/signing"
)

type UserKeys struct {
	PrivateKey signing.PrivateKey
	PublicKey  signing.PublicKey
}

func (u UserKeys) GetSigner() *signing.Signer {
	cryptoFactory := signing.NewCryptoFactory(signing.NewSecp256k1Context())
	return cryptoFactory.NewSigner(u.PrivateKey)
}

// Address is the ledger address of the key owner: the compressed public key in hex.
func (u UserKeys) Address() model.Address {
	return u.PublicKey.AsHex()
}

func fromPrivateKey(key *secp256k1.PrivateKey) UserKeys {
	return UserKeys{
		PrivateKey: signing.NewSecp256k1PrivateKey(key.Serialize()),
		PublicKey:  signing.NewSecp256k1PublicKey(key.PubKey().SerializeCompressed()),
	}
}

func GenerateKeys() (UserKeys, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return UserKeys{}, errors.New("failed to generate the keys: " + err.Error())
	}
	return fromPrivateKey(key), nil
}

// KeysFromHex restores the keys from a hex encoded 32 byte private key.
func KeysFromHex(privateKey string) (UserKeys, error) {
	raw, err := hex.DecodeString(privateKey)
	if err != nil {
		return UserKeys{}, errors.New("failed to decode the private key: " + err.Error())
	}
	if len(raw) != secp256k1.PrivKeyBytesLen {
		return UserKeys{}, errors.New("private key must be 32 bytes long")
	}
	return fromPrivateKey(secp256k1.PrivKeyFromBytes(raw)), nil
}
