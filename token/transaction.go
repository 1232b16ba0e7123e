package token

import (
	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/keys"
	"xdao.co/tokenrec/proof"
)

// AddressOf returns the direct address that receives tokens guarded by a
// predicate.
func AddressOf(pred []byte) string {
	return "DIRECT://" + hashutil.SumSHA256(pred).Hex()
}

// MintData is the genesis payload.
type MintData struct {
	TokenID   hashutil.HexBytes `json:"tokenId"`
	TokenType hashutil.HexBytes `json:"tokenType"`
	Recipient string            `json:"recipient"`
	Salt      hashutil.HexBytes `json:"salt"`
	DataHash  hashutil.Imprint  `json:"dataHash,omitempty"`
	TokenData hashutil.HexBytes `json:"tokenData,omitempty"`
}

type mintWire struct {
	_         struct{} `cbor:",toarray"`
	TokenID   []byte
	TokenType []byte
	Recipient string
	Salt      []byte
	DataHash  []byte
	TokenData []byte
}

// Hash returns the genesis transaction hash.
func (m *MintData) Hash() (hashutil.Imprint, error) {
	b, err := detEncMode.Marshal(mintWire{
		TokenID:   nonNil(m.TokenID),
		TokenType: nonNil(m.TokenType),
		Recipient: m.Recipient,
		Salt:      nonNil(m.Salt),
		DataHash:  nonNil(m.DataHash),
		TokenData: nonNil(m.TokenData),
	})
	if err != nil {
		return nil, err
	}
	return hashutil.Sum(hashutil.SHA256, b)
}

func (m MintData) clone() MintData {
	return MintData{
		TokenID:   cloneBytes(m.TokenID),
		TokenType: cloneBytes(m.TokenType),
		Recipient: m.Recipient,
		Salt:      cloneBytes(m.Salt),
		DataHash:  hashutil.Imprint(cloneBytes(m.DataHash)),
		TokenData: cloneBytes(m.TokenData),
	}
}

// minterSecret is public: anyone may verify a genesis, only the ledger's
// uniqueness of request ids keeps a token id from being minted twice.
var minterSecret = []byte("tokenrec universal minter")

// MintSourceState returns the pseudo source-state hash a genesis spends.
func MintSourceState(tokenID []byte) hashutil.Imprint {
	buf := append([]byte("tokenrec-mint"), tokenID...)
	return hashutil.SumSHA256(buf)
}

// MinterSigner returns the signer that authenticates the genesis of tokenID.
func MinterSigner(tokenID []byte) (keys.Signer, error) {
	seed, err := keys.DeriveSeed(minterSecret, tokenID)
	if err != nil {
		return nil, err
	}
	return keys.NewEd25519Signer(seed)
}

// Genesis is the mint transaction of a token.
type Genesis struct {
	Data  MintData              `json:"data"`
	Proof *proof.InclusionProof `json:"inclusionProof,omitempty"`
}

// IsComplete reports whether the genesis proof carries an authenticator and a
// transaction hash.
func (g *Genesis) IsComplete() bool { return g.Proof.IsComplete() }

// TransferData is the payload of one state transition.
type TransferData struct {
	SourceState *State            `json:"sourceState"`
	Recipient   string            `json:"recipient"`
	Salt        hashutil.HexBytes `json:"salt"`
	DataHash    hashutil.Imprint  `json:"dataHash,omitempty"`
	Message     hashutil.HexBytes `json:"message,omitempty"`
}

type transferWire struct {
	_           struct{} `cbor:",toarray"`
	SourceState []byte
	Recipient   string
	Salt        []byte
	DataHash    []byte
	Message     []byte
}

// Hash returns the transaction hash. The source state enters through its
// state hash, so a transfer commits to exactly one spent state.
func (d *TransferData) Hash() (hashutil.Imprint, error) {
	if d.SourceState == nil {
		return nil, errMissingSourceState
	}
	src, err := d.SourceState.Hash()
	if err != nil {
		return nil, err
	}
	b, err := detEncMode.Marshal(transferWire{
		SourceState: src,
		Recipient:   d.Recipient,
		Salt:        nonNil(d.Salt),
		DataHash:    nonNil(d.DataHash),
		Message:     nonNil(d.Message),
	})
	if err != nil {
		return nil, err
	}
	return hashutil.Sum(hashutil.SHA256, b)
}

func (d TransferData) clone() TransferData {
	return TransferData{
		SourceState: d.SourceState.Clone(),
		Recipient:   d.Recipient,
		Salt:        cloneBytes(d.Salt),
		DataHash:    hashutil.Imprint(cloneBytes(d.DataHash)),
		Message:     cloneBytes(d.Message),
	}
}

// Transaction is one transfer plus its (possibly partial) inclusion proof.
type Transaction struct {
	Data  TransferData          `json:"data"`
	Proof *proof.InclusionProof `json:"inclusionProof,omitempty"`
}

// IsComplete reports whether the proof carries an authenticator and a
// transaction hash.
func (t *Transaction) IsComplete() bool { return t.Proof.IsComplete() }

// Authenticator returns the commitment authenticator, or nil.
func (t *Transaction) Authenticator() *proof.Authenticator {
	if t.Proof == nil {
		return nil
	}
	return t.Proof.Authenticator
}

// PendingTransfer describes an offline transfer package that was built but
// not yet accepted by the ledger.
type PendingTransfer struct {
	Recipient string            `json:"recipient"`
	Salt      hashutil.HexBytes `json:"salt"`
	DataHash  hashutil.Imprint  `json:"dataHash,omitempty"`
	Message   hashutil.HexBytes `json:"message,omitempty"`
	RequestID hashutil.Imprint  `json:"requestId,omitempty"`
}

func (p *PendingTransfer) Clone() *PendingTransfer {
	if p == nil {
		return nil
	}
	return &PendingTransfer{
		Recipient: p.Recipient,
		Salt:      cloneBytes(p.Salt),
		DataHash:  hashutil.Imprint(cloneBytes(p.DataHash)),
		Message:   cloneBytes(p.Message),
		RequestID: hashutil.Imprint(cloneBytes(p.RequestID)),
	}
}
