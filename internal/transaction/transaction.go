/**
 * Copyright 2018 Intel Corporation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 * ------------------------------------------------------------------------------
 */

// based on https://github.com/hyperledger/sawtooth-sdk-go/blob/21f3d02d2446b6a91a945c93a8b94b1ddf616841/examples/intkey_go/src/sawtooth_intkey_client/intkey_client.go

// Package transaction builds and verifies signed call envelopes. The signer public key
// is the caller address and the hash of the signed header is the transaction reference.
package transaction

import (
	"contribution-ledger/internal/hashing"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/state"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/fxamacker/cbor"
	"github.com/google/uuid"
	"github.com/hyperledger/sawtooth-sdk-go/protobuf/transaction_pb2"
	"github.com/hyperledger/sawtooth-sdk-go/signing"
	"google.golang.org/protobuf/proto"
)

var (
	ErrMalformed        = errors.New("malformed transaction")
	ErrPayloadMismatch  = errors.New("payload hash mismatch")
	ErrInvalidSignature = errors.New("invalid transaction signature")
	ErrWrongFamily      = errors.New("transaction family not supported")
)

// Payload is the CBOR encoded body of a transaction. Action selects the call; only the
// fields the call needs are set.
type Payload struct {
	Action      string                `cbor:"action"`
	Recipient   model.Address         `cbor:"recipient,omitempty"`
	Spender     model.Address         `cbor:"spender,omitempty"`
	Owner       model.Address         `cbor:"owner,omitempty"`
	Account     model.Address         `cbor:"account,omitempty"`
	Contributor model.Address         `cbor:"contributor,omitempty"`
	Amount      model.Amount          `cbor:"amount,omitempty"`
	ProposalID  uint64                `cbor:"proposalId,omitempty"`
	Description string                `cbor:"description,omitempty"`
	Type        model.ProposalType    `cbor:"type,omitempty"`
	Proposal    *model.ProposalAction `cbor:"proposalAction,omitempty"`
	Support     model.VoteType        `cbor:"support,omitempty"`
	Scores      *model.CategoryScores `cbor:"scores,omitempty"`
	CommitRef   string                `cbor:"commitRef,omitempty"`
}

// Verified is an authenticated transaction.
type Verified struct {
	Signer  model.Address
	TxRef   string
	Payload Payload
}

func NewTransaction(payload Payload, signer *signing.Signer) (*transaction_pb2.Transaction, error) {

	payloadDump, err := cbor.Marshal(payload, cbor.CanonicalEncOptions())
	if err != nil {
		return nil, errors.New("failed to dump the payload: " + err.Error())
	}

	addresses := []string{state.Namespace()}
	rawTransactionHeader := transaction_pb2.TransactionHeader{
		SignerPublicKey:  signer.GetPublicKey().AsHex(),
		FamilyName:       state.FamilyName,
		FamilyVersion:    state.FamilyVersion,
		Nonce:            uuid.NewString(),
		BatcherPublicKey: signer.GetPublicKey().AsHex(),
		Inputs:           addresses,
		Outputs:          addresses,
		PayloadSha512:    hashing.Calculate(payloadDump),
	}

	transactionHeader, err := proto.Marshal(&rawTransactionHeader)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize transaction header: %v", err)
	}

	transactionHeaderSignature := hex.EncodeToString(signer.Sign(transactionHeader))

	return &transaction_pb2.Transaction{
		Header:          transactionHeader,
		HeaderSignature: transactionHeaderSignature,
		Payload:         payloadDump,
	}, nil
}

// Marshal serializes a transaction for the wire.
func Marshal(txn *transaction_pb2.Transaction) ([]byte, error) {
	raw, err := proto.Marshal(txn)
	if err != nil {
		return nil, errors.New("unable to serialize the transaction: " + err.Error())
	}
	return raw, nil
}

// Unmarshal parses a serialized transaction.
func Unmarshal(raw []byte) (*transaction_pb2.Transaction, error) {
	txn := &transaction_pb2.Transaction{}
	if err := proto.Unmarshal(raw, txn); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMalformed)
	}
	return txn, nil
}

// Verify checks the family, the payload hash and the header signature, then decodes the payload.
func Verify(txn *transaction_pb2.Transaction) (Verified, error) {
	header := &transaction_pb2.TransactionHeader{}
	if err := proto.Unmarshal(txn.GetHeader(), header); err != nil {
		return Verified{}, fmt.Errorf("header: %v: %w", err, ErrMalformed)
	}
	if header.GetFamilyName() != state.FamilyName || header.GetFamilyVersion() != state.FamilyVersion {
		return Verified{}, fmt.Errorf("%s %s: %w", header.GetFamilyName(), header.GetFamilyVersion(), ErrWrongFamily)
	}
	if hashing.Calculate(txn.GetPayload()) != header.GetPayloadSha512() {
		return Verified{}, ErrPayloadMismatch
	}

	signer := header.GetSignerPublicKey()
	if !model.ValidAddress(signer) {
		return Verified{}, fmt.Errorf("signer %q: %w", signer, model.ErrInvalidAddress)
	}
	publicKey, err := hex.DecodeString(signer)
	if err != nil {
		return Verified{}, fmt.Errorf("signer: %v: %w", err, ErrMalformed)
	}
	if _, err := secp256k1.ParsePubKey(publicKey); err != nil {
		return Verified{}, fmt.Errorf("signer: %v: %w", err, ErrInvalidSignature)
	}
	signature, err := hex.DecodeString(txn.GetHeaderSignature())
	if err != nil {
		return Verified{}, fmt.Errorf("signature: %v: %w", err, ErrMalformed)
	}
	if err := checkCompact(signature); err != nil {
		return Verified{}, err
	}
	context := signing.NewSecp256k1Context()
	if !context.Verify(signature, txn.GetHeader(), signing.NewSecp256k1PublicKey(publicKey)) {
		return Verified{}, ErrInvalidSignature
	}

	var payload Payload
	if err := cbor.Unmarshal(txn.GetPayload(), &payload); err != nil {
		return Verified{}, fmt.Errorf("payload: %v: %w", err, ErrMalformed)
	}
	if payload.Action == "" {
		return Verified{}, fmt.Errorf("payload without action: %w", ErrMalformed)
	}

	return Verified{Signer: signer, TxRef: Ref(txn), Payload: payload}, nil
}

// Ref is the transaction reference: the hash of the signed header. The header carries
// the signer and a nonce, so every signature over it maps to the same reference.
func Ref(txn *transaction_pb2.Transaction) string {
	return hashing.Calculate(txn.GetHeader())
}

// checkCompact accepts only 64 byte r||s signatures with 0 < r, s < n and s in the
// lower half of the order.
func checkCompact(signature []byte) error {
	if len(signature) != 64 {
		return fmt.Errorf("signature of %d bytes: %w", len(signature), ErrMalformed)
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(signature[:32]); overflow || r.IsZero() {
		return fmt.Errorf("signature r out of range: %w", ErrInvalidSignature)
	}
	if overflow := s.SetByteSlice(signature[32:]); overflow || s.IsZero() {
		return fmt.Errorf("signature s out of range: %w", ErrInvalidSignature)
	}
	if s.IsOverHalfOrder() {
		return fmt.Errorf("signature with high s: %w", ErrInvalidSignature)
	}
	return nil
}
