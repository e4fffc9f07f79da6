package state

import (
	"errors"

	"github.com/fxamacker/cbor"
)

var encOptions = cbor.CanonicalEncOptions()

// Encode serializes v in canonical CBOR.
func Encode(v interface{}) ([]byte, error) {
	data, err := cbor.Marshal(v, encOptions)
	if err != nil {
		return nil, errors.New("failed to encode the state value: " + err.Error())
	}
	return data, nil
}

// Load decodes the value stored under key into v. It reports false if the key is absent.
func Load(tx Tx, key string, v interface{}) (bool, error) {
	raw, err := tx.Get(key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := cbor.Unmarshal(raw, v); err != nil {
		return false, errors.New("failed to decode the state value: " + err.Error())
	}
	return true, nil
}

// Save encodes v and stores it under key.
func Save(tx Tx, key string, v interface{}) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return tx.Put(key, data)
}

// Decode is Load for a raw value obtained from Scan.
func Decode(raw []byte, v interface{}) error {
	if err := cbor.Unmarshal(raw, v); err != nil {
		return errors.New("failed to decode the state value: " + err.Error())
	}
	return nil
}
