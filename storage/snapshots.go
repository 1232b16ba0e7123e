package storage

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ipfs/go-cid"

	"xdao.co/tokenrec/codec"
	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/token"
)

// Snapshots archives token records in their disk form.
type Snapshots struct {
	blobs Blobs
}

func NewSnapshots(b Blobs) *Snapshots {
	return &Snapshots{blobs: b}
}

// Put archives rec and returns the CID of its disk form. Archiving the same
// record twice returns the same CID.
func (s *Snapshots) Put(rec *token.Record) (cid.Cid, error) {
	if rec == nil || len(rec.ID()) == 0 {
		return cid.Undef, fmt.Errorf("%w: missing token id", token.ErrInvalidRecord)
	}
	b, err := codec.Marshal(rec)
	if err != nil {
		return cid.Undef, err
	}
	return s.blobs.Put(b)
}

// Get decodes the snapshot stored under id. Bytes that do not decode to a
// record with a token id and a current state yield ErrNotRecord.
func (s *Snapshots) Get(id cid.Cid) (*token.Record, error) {
	b, err := s.blobs.Get(id)
	if err != nil {
		return nil, err
	}
	rec, err := codec.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotRecord, id, err)
	}
	if len(rec.ID()) == 0 || rec.State == nil {
		return nil, fmt.Errorf("%w: %s: no token id or current state", ErrNotRecord, id)
	}
	return rec, nil
}

// Entry summarizes one archived snapshot.
type Entry struct {
	CID          cid.Cid
	TokenID      hashutil.HexBytes
	Transactions int
	// Incomplete counts the items still lacking a full proof.
	Incomplete int
	Pending    bool
	Status     string
}

// History lists the snapshots of tokenID, or of every token when tokenID is
// nil. Entries are grouped by token and ordered oldest first: fewer
// transactions first, then more incomplete items first. Blobs that are not
// records are skipped; corrupted blobs fail the listing.
func (s *Snapshots) History(tokenID []byte) ([]Entry, error) {
	ids, err := s.blobs.List()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, id := range ids {
		rec, err := s.Get(id)
		if err != nil {
			if errors.Is(err, ErrNotRecord) {
				continue
			}
			return nil, err
		}
		if tokenID != nil && !bytes.Equal(rec.ID(), tokenID) {
			continue
		}
		out = append(out, Entry{
			CID:          id,
			TokenID:      hashutil.HexBytes(rec.ID()),
			Transactions: len(rec.Transactions),
			Incomplete:   incomplete(rec),
			Pending:      rec.HasPendingTransfer(),
			Status:       rec.Status,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := bytes.Compare(a.TokenID, b.TokenID); c != 0 {
			return c < 0
		}
		if a.Transactions != b.Transactions {
			return a.Transactions < b.Transactions
		}
		if a.Incomplete != b.Incomplete {
			return a.Incomplete > b.Incomplete
		}
		return a.CID.String() < b.CID.String()
	})
	return out, nil
}

func incomplete(rec *token.Record) int {
	n := 0
	if !rec.Genesis.IsComplete() {
		n++
	}
	for i := range rec.Transactions {
		if !rec.Transactions[i].IsComplete() {
			n++
		}
	}
	return n
}
