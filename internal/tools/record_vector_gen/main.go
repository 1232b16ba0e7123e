// Command record_vector_gen writes deterministic token records covering each
// ownership scenario, plus the trust base of the ledger that certified them.
//
// Records whose name ends in "-resolved" carry full inclusion proofs; the
// others keep only authenticators, as a wallet would after an offline send.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"xdao.co/tokenrec/codec"
	"xdao.co/tokenrec/config"
	"xdao.co/tokenrec/keys"
	"xdao.co/tokenrec/ledger/memledger"
	"xdao.co/tokenrec/predicate"
	"xdao.co/tokenrec/resolver"
	"xdao.co/tokenrec/token"
)

var (
	walletSecret = []byte("record_vector_gen wallet")
	tokenType    = []byte("vector")
)

type wallet struct {
	signer keys.Signer
	nonce  []byte
}

func newWallet(name string) wallet {
	seed, err := keys.DeriveSeed(walletSecret, []byte(name))
	if err != nil {
		fatalf("derive seed: %v", err)
	}
	s, err := keys.NewEd25519Signer(seed)
	if err != nil {
		fatalf("signer: %v", err)
	}
	return wallet{signer: s, nonce: []byte(name)}
}

// state returns w's state for the token id. Each scenario mints its own
// token: mint request ids depend only on the token id.
func (w wallet) state(tokenID []byte, masked bool) *token.State {
	p := predicate.Predicate{
		Scheme:        predicate.SchemeUnmasked,
		TokenID:       tokenID,
		TokenType:     tokenType,
		PublicKey:     w.signer.PublicKey(),
		Algorithm:     w.signer.Algorithm(),
		HashAlgorithm: "sha256",
	}
	if masked {
		p.Scheme = predicate.SchemeMasked
		p.Nonce = w.nonce
	}
	return &token.State{Predicate: predicate.MustEncode(p)}
}

type generator struct {
	ctx    context.Context
	ledger *memledger.Ledger
	out    string
}

func (g *generator) submit(c *token.Commitment) {
	if _, err := g.ledger.Submit(g.ctx, c.Authenticator, c.TransactionHash); err != nil {
		fatalf("submit: %v", err)
	}
	if _, err := g.ledger.Certify(g.ctx); err != nil {
		fatalf("certify: %v", err)
	}
}

func (g *generator) mint(id string, owner wallet, masked bool) *token.Record {
	tokenID := []byte(id)
	r, c, err := token.Mint(token.MintData{
		TokenID:   tokenID,
		TokenType: tokenType,
		Salt:      []byte("genesis"),
		TokenData: []byte("record_vector_gen"),
	}, owner.state(tokenID, masked))
	if err != nil {
		fatalf("mint: %v", err)
	}
	g.submit(c)
	return r
}

func (g *generator) send(r *token.Record, from, to wallet, offline bool) {
	c, err := r.Send(from.signer, token.Transfer{
		Recipient: token.AddressOf(to.state(r.ID(), false).Predicate),
		Salt:      []byte(fmt.Sprintf("tx-%d", len(r.Transactions))),
		Message:   []byte("vector transfer"),
		Offline:   offline,
	})
	if err != nil {
		fatalf("send: %v", err)
	}
	if !offline {
		g.submit(c)
	}
}

func (g *generator) write(name string, r *token.Record) {
	path := filepath.Join(g.out, name+".json")
	if err := codec.Save(path, r); err != nil {
		fatalf("write %s: %v", path, err)
	}
	fmt.Fprintln(os.Stdout, path)
}

// writeBoth writes r as is and, under name-resolved, with proofs attached.
func (g *generator) writeBoth(name string, r *token.Record) {
	g.write(name, r)
	resolved := r.Clone()
	res := resolver.New(g.ledger, resolver.Options{TrustBase: g.ledger.TrustBase()})
	if _, err := res.Resolve(g.ctx, resolved); err != nil {
		fatalf("resolve %s: %v", name, err)
	}
	g.write(name+"-resolved", resolved)
}

func main() {
	outDir := flag.String("out", "", "output directory")
	validators := flag.Int("validators", 3, "validator count")
	flag.Parse()
	if *outDir == "" {
		fmt.Fprintln(os.Stderr, "usage: record_vector_gen -out <dir> [-validators n]")
		os.Exit(2)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fatalf("mkdir: %v", err)
	}

	l, err := memledger.New(memledger.Config{Validators: *validators, Secret: []byte("record_vector_gen ledger")})
	if err != nil {
		fatalf("memledger: %v", err)
	}
	if err := config.WriteTrustBase(filepath.Join(*outDir, "trustbase.json"), l.TrustBase()); err != nil {
		fatalf("trust base: %v", err)
	}
	g := &generator{ctx: context.Background(), ledger: l, out: *outDir}
	alice, bob, carol := newWallet("alice"), newWallet("bob"), newWallet("carol")

	// Current: freshly minted, masked predicate.
	g.writeBoth("current", g.mint("vector-current", alice, true))

	// Pending: offline send not yet submitted.
	pending := g.mint("vector-pending", alice, false)
	g.send(pending, alice, bob, true)
	g.write("pending", pending)

	// Confirmed: alice's copy after an online send the ledger accepted.
	confirmed := g.mint("vector-confirmed", alice, false)
	g.send(confirmed, alice, bob, false)
	g.writeBoth("confirmed", confirmed)

	// Received: bob's copy of the same kind of transfer, claimed and current.
	received := g.mint("vector-received", alice, false)
	g.send(received, alice, bob, false)
	if err := received.Receive(bob.state(received.ID(), false)); err != nil {
		fatalf("receive: %v", err)
	}
	g.writeBoth("received", received)

	// Outdated: alice's copy from before the token moved on to carol.
	stale := g.mint("vector-outdated", alice, false)
	staleCopy := stale.Clone()
	g.send(stale, alice, carol, false)
	g.write("outdated", staleCopy)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
