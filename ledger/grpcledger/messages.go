package grpcledger

import (
	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/proof"
)

// RequestIDHeader carries a per-call correlation id in gRPC metadata.
const RequestIDHeader = "x-request-id"

type submitRequest struct {
	Authenticator   *proof.Authenticator `json:"authenticator"`
	TransactionHash hashutil.Imprint     `json:"transactionHash"`
}

type spentRequest struct {
	PublicKey hashutil.HexBytes `json:"publicKey"`
	StateHash hashutil.Imprint  `json:"stateHash"`
}
