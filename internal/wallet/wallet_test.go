package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/quainet/qi-wallet/internal/provider"
	"github.com/quainet/qi-wallet/pkg/tx"
	"github.com/quainet/qi-wallet/pkg/types"
)

// fixtureProvider is a canned Provider for wallet tests.
type fixtureProvider struct {
	outpoints  map[types.Address][]types.Outpoint
	balances   map[types.Address]uint64
	height     uint64
	fee        uint64
	failNext   error
	broadcasts [][]byte
}

func newFixtureProvider() *fixtureProvider {
	return &fixtureProvider{
		outpoints: make(map[types.Address][]types.Outpoint),
		balances:  make(map[types.Address]uint64),
		height:    500,
	}
}

func (f *fixtureProvider) fail() error {
	return f.failNext
}

func (f *fixtureProvider) GetOutpointsByAddress(_ context.Context, addr types.Address) ([]types.Outpoint, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.outpoints[addr], nil
}

func (f *fixtureProvider) GetBalance(_ context.Context, addr types.Address) (uint64, error) {
	if err := f.fail(); err != nil {
		return 0, err
	}
	return f.balances[addr], nil
}

func (f *fixtureProvider) GetLockedBalance(_ context.Context, _ types.Address) (uint64, error) {
	return 0, f.fail()
}

func (f *fixtureProvider) GetBlockNumber(_ context.Context, _ types.Zone) (uint64, error) {
	if err := f.fail(); err != nil {
		return 0, err
	}
	return f.height, nil
}

func (f *fixtureProvider) GetBlock(_ context.Context, _ types.Zone, _ string) (*provider.Block, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return &provider.Block{Hash: types.Hash{0xbb}, Number: f.height}, nil
}

func (f *fixtureProvider) EstimateFeeForQi(_ context.Context, _ types.Zone, _ []byte) (uint64, error) {
	if err := f.fail(); err != nil {
		return 0, err
	}
	return f.fee, nil
}

func (f *fixtureProvider) BroadcastTransaction(_ context.Context, _ types.Zone, signedTx []byte, _ types.Address) (*provider.TransactionResponse, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	f.broadcasts = append(f.broadcasts, signedTx)
	return &provider.TransactionResponse{Hash: types.Hash{0xcc}}, nil
}

func (f *fixtureProvider) On(_ provider.EventKind, _ provider.Listener, _ types.Zone) (provider.Subscription, error) {
	return nil, errors.New("not supported in fixture")
}

// testWallet builds a wallet over the fixture provider with a small gap
// limit to keep scans fast.
func testWallet(t *testing.T, f *fixtureProvider) *Wallet {
	t.Helper()
	opts := DefaultOptions()
	opts.GapLimit = 2
	w, err := NewFromMnemonic(testMnemonic, "", f, opts)
	if err != nil {
		t.Fatalf("NewFromMnemonic: %v", err)
	}
	return w
}

// fund credits the address with outpoints of the given denominations.
func fund(f *fixtureProvider, addr types.Address, denoms ...types.Denomination) {
	for i, d := range denoms {
		f.outpoints[addr] = append(f.outpoints[addr], types.Outpoint{
			TxHash:       types.Hash{0xf0, byte(len(f.outpoints[addr])), byte(i)},
			Index:        uint16(i),
			Denomination: d,
		})
	}
}

func TestWallet_NextAddressAllocation(t *testing.T) {
	w := testWallet(t, newFixtureProvider())

	a1, err := w.GetNextAddress(types.ZoneCyprus1)
	if err != nil {
		t.Fatalf("GetNextAddress: %v", err)
	}
	a2, err := w.GetNextAddress(types.ZoneCyprus1)
	if err != nil {
		t.Fatalf("GetNextAddress: %v", err)
	}
	if a1.Address == a2.Address {
		t.Error("consecutive allocations returned the same address")
	}
	if a2.Index <= a1.Index {
		t.Errorf("indices not increasing: %d then %d", a1.Index, a2.Index)
	}
	if !a1.Address.IsInZone(types.ZoneCyprus1) || !a1.Address.IsQi() {
		t.Errorf("address %s fails zone/ledger predicates", a1.Address)
	}

	c1, err := w.GetNextChangeAddress(types.ZoneCyprus1)
	if err != nil {
		t.Fatalf("GetNextChangeAddress: %v", err)
	}
	if c1.Path != PathChange {
		t.Errorf("change path = %q, want %q", c1.Path, PathChange)
	}
}

func TestWallet_ScanDiscoversFunds(t *testing.T) {
	f := newFixtureProvider()
	w := testWallet(t, f)

	// Learn the first two external addresses, then fund them.
	a1, _ := w.GetNextAddress(types.ZoneCyprus1)
	a2, _ := w.GetNextAddress(types.ZoneCyprus1)
	fund(f, a1.Address, 3, 4) // 150
	fund(f, a2.Address, 7)    // 1000

	if err := w.Scan(context.Background(), types.ZoneCyprus1); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if got := w.GetBalance(types.ZoneCyprus1); got != 1150 {
		t.Errorf("balance = %d, want 1150", got)
	}
	if w.book.Get(a1.Address).Status != StatusUsed {
		t.Error("funded address should be USED")
	}

	// Gap limit maintained: at least two unused addresses past the last
	// used one in the external bucket.
	bucket := w.book.InBucket(0, PathExternal, types.ZoneCyprus1)
	unusedTail := 0
	for _, info := range bucket {
		if info.Status == StatusUnused {
			unusedTail++
		} else {
			unusedTail = 0
		}
	}
	if unusedTail < 2 {
		t.Errorf("unused tail = %d, want >= gap limit 2", unusedTail)
	}
}

func TestWallet_ScanErrorLeavesStateUntouched(t *testing.T) {
	f := newFixtureProvider()
	w := testWallet(t, f)
	a1, _ := w.GetNextAddress(types.ZoneCyprus1)
	fund(f, a1.Address, 7)

	addrsBefore := w.book.Len()
	f.failNext = errors.New("connection refused")
	err := w.Scan(context.Background(), types.ZoneCyprus1)
	if err == nil {
		t.Fatal("scan should surface the provider error")
	}
	if w.book.Len() != addrsBefore {
		t.Error("failed scan must not add addresses")
	}
	if got := w.GetBalance(types.ZoneCyprus1); got != 0 {
		t.Errorf("failed scan must not import outpoints, balance = %d", got)
	}
}

func TestWallet_ConvertToQuai_SingleInputSchnorr(t *testing.T) {
	f := newFixtureProvider()
	w := testWallet(t, f)
	a1, _ := w.GetNextAddress(types.ZoneCyprus1)
	fund(f, a1.Address, 3) // one 50-qit coin
	if err := w.Scan(context.Background(), types.ZoneCyprus1); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	dest := types.Address{byte(types.ZoneCyprus1), 0x00, 0xde, 0xad}
	if dest.IsQi() {
		t.Fatal("fixture destination must be a Quai address")
	}
	resp, err := w.ConvertToQuai(context.Background(), dest, 50)
	if err != nil {
		t.Fatalf("ConvertToQuai: %v", err)
	}
	if resp == nil || len(f.broadcasts) != 1 {
		t.Fatal("expected one broadcast")
	}

	decoded, err := tx.DecodeSigned(f.broadcasts[0])
	if err != nil {
		t.Fatalf("DecodeSigned: %v", err)
	}
	if len(decoded.Ins) != 1 {
		t.Fatalf("inputs = %d, want 1", len(decoded.Ins))
	}
	if err := decoded.VerifySignature(); err != nil {
		t.Errorf("Schnorr signature did not verify: %v", err)
	}
	if decoded.Outs[0].Address != dest {
		t.Errorf("output address = %s, want %s", decoded.Outs[0].Address, dest)
	}

	// Spent outpoint left the ledger.
	if got := w.GetBalance(types.ZoneCyprus1); got != 0 {
		t.Errorf("balance after spend = %d, want 0", got)
	}
}

func TestWallet_ConvertToQuai_MultiInputMuSig(t *testing.T) {
	f := newFixtureProvider()
	w := testWallet(t, f)
	a1, _ := w.GetNextAddress(types.ZoneCyprus1)
	a2, _ := w.GetNextAddress(types.ZoneCyprus1)
	fund(f, a1.Address, 3) // 50
	fund(f, a2.Address, 4) // 100
	if err := w.Scan(context.Background(), types.ZoneCyprus1); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	dest := types.Address{byte(types.ZoneCyprus1), 0x00, 0xbe, 0xef}
	if _, err := w.ConvertToQuai(context.Background(), dest, 150); err != nil {
		t.Fatalf("ConvertToQuai: %v", err)
	}

	decoded, err := tx.DecodeSigned(f.broadcasts[0])
	if err != nil {
		t.Fatalf("DecodeSigned: %v", err)
	}
	if len(decoded.Ins) != 2 {
		t.Fatalf("inputs = %d, want 2", len(decoded.Ins))
	}
	if err := decoded.VerifySignature(); err != nil {
		t.Errorf("MuSig signature did not verify: %v", err)
	}
}

func TestWallet_ConvertToQuai_RejectsQiDestination(t *testing.T) {
	w := testWallet(t, newFixtureProvider())
	qiDest := types.Address{byte(types.ZoneCyprus1), 0x80, 0x01}
	if _, err := w.ConvertToQuai(context.Background(), qiDest, 50); !errors.Is(err, ErrNotQuaiDest) {
		t.Errorf("err = %v, want ErrNotQuaiDest", err)
	}
}

func TestWallet_SendTransactionThroughChannel(t *testing.T) {
	f := newFixtureProvider()
	alice := testWallet(t, f)
	a1, _ := alice.GetNextAddress(types.ZoneCyprus1)
	fund(f, a1.Address, 3, 3) // 100 qits
	if err := alice.Scan(context.Background(), types.ZoneCyprus1); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	bobOpts := DefaultOptions()
	bob, err := NewFromMnemonic(peerMnemonic, "", newFixtureProvider(), bobOpts)
	if err != nil {
		t.Fatalf("bob wallet: %v", err)
	}
	bobCode := bob.PaymentCode()
	if err := alice.OpenChannel(bobCode); err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}

	resp, err := alice.SendTransaction(context.Background(), bobCode, 100, types.ZoneCyprus1, types.ZoneCyprus1)
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if resp == nil {
		t.Fatal("nil broadcast response")
	}

	decoded, err := tx.DecodeSigned(f.broadcasts[0])
	if err != nil {
		t.Fatalf("DecodeSigned: %v", err)
	}
	if err := decoded.VerifySignature(); err != nil {
		t.Errorf("signature did not verify: %v", err)
	}
	for i, out := range decoded.Outs {
		if !out.Address.IsInZone(types.ZoneCyprus1) || !out.Address.IsQi() {
			t.Errorf("output %d address %s fails zone/ledger predicates", i, out.Address)
		}
	}

	// Bob can independently derive the destination address alice used.
	if err := bob.OpenChannel(alice.PaymentCode()); err != nil {
		t.Fatalf("bob OpenChannel: %v", err)
	}
	bobRecv, err := bob.GetNextReceiveAddress(alice.PaymentCode(), types.ZoneCyprus1)
	if err != nil {
		t.Fatalf("GetNextReceiveAddress: %v", err)
	}
	if bobRecv.Address != decoded.Outs[0].Address {
		t.Errorf("bob derived %s, alice paid %s", bobRecv.Address, decoded.Outs[0].Address)
	}

	// 100 qits decomposes to a single 100-qit output, so the channel
	// counter advanced exactly once.
	if got := alice.channels[bobCode].SendIndex; got != 1 {
		t.Errorf("send counter = %d, want 1", got)
	}
}

func TestWallet_FailedBroadcastDoesNotBurnChangeAddresses(t *testing.T) {
	f := newFixtureProvider()
	w := testWallet(t, f)
	a1, _ := w.GetNextAddress(types.ZoneCyprus1)
	fund(f, a1.Address, 4) // one 100-qit coin
	if err := w.Scan(context.Background(), types.ZoneCyprus1); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	dest := types.Address{byte(types.ZoneCyprus1), 0x00, 0xde, 0xad}
	addrsBefore := w.book.Len()
	nextBefore := w.book.NextIndex(0, PathChange, types.ZoneCyprus1)
	expected, err := deriveNextQiAddressNode(w.chainNode(PathChange), nextBefore, types.ZoneCyprus1)
	if err != nil {
		t.Fatalf("deriveNextQiAddressNode: %v", err)
	}

	f.failNext = errors.New("connection refused")
	if _, err := w.ConvertToQuai(context.Background(), dest, 50); err == nil {
		t.Fatal("broadcast failure should surface")
	}
	if w.book.Len() != addrsBefore {
		t.Error("failed send must not add change addresses to the book")
	}
	if got := w.book.NextIndex(0, PathChange, types.ZoneCyprus1); got != nextBefore {
		t.Errorf("change index advanced to %d on failed send, want %d", got, nextBefore)
	}

	// A successful retry commits the change address at the index the
	// failed attempt staged.
	f.failNext = nil
	if _, err := w.ConvertToQuai(context.Background(), dest, 50); err != nil {
		t.Fatalf("retry: %v", err)
	}
	decoded, err := tx.DecodeSigned(f.broadcasts[0])
	if err != nil {
		t.Fatalf("DecodeSigned: %v", err)
	}
	if len(decoded.Outs) != 2 {
		t.Fatalf("outputs = %d, want spend + change", len(decoded.Outs))
	}
	change := w.book.Get(decoded.Outs[1].Address)
	if change == nil {
		t.Fatal("change address missing from the book after broadcast")
	}
	if change.Status != StatusAttemptedUse {
		t.Errorf("change status = %v, want StatusAttemptedUse", change.Status)
	}
	if change.Index != expected.Index() {
		t.Errorf("change index = %d, want %d", change.Index, expected.Index())
	}
}

func TestWallet_SendRequiresOpenChannel(t *testing.T) {
	w := testWallet(t, newFixtureProvider())
	bob, _ := NewFromMnemonic(peerMnemonic, "", nil, DefaultOptions())
	_, err := w.SendTransaction(context.Background(), bob.PaymentCode(), 50, types.ZoneCyprus1, types.ZoneCyprus1)
	if !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("err = %v, want ErrUnknownChannel", err)
	}
}

func TestWallet_OpenChannelIdempotent(t *testing.T) {
	w := testWallet(t, newFixtureProvider())
	bob, _ := NewFromMnemonic(peerMnemonic, "", nil, DefaultOptions())
	code := bob.PaymentCode()

	if err := w.OpenChannel(code); err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	w.channels[code].SendIndex = 5
	if err := w.OpenChannel(code); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if w.channels[code].SendIndex != 5 {
		t.Error("reopening a channel must preserve counters")
	}
}

func TestWallet_OpenChannelRejectsMalformedCode(t *testing.T) {
	w := testWallet(t, newFixtureProvider())
	if err := w.OpenChannel("not-a-code"); !errors.Is(err, ErrInvalidPaymentCode) {
		t.Errorf("err = %v, want ErrInvalidPaymentCode", err)
	}
}

func TestWallet_Aggregate(t *testing.T) {
	f := newFixtureProvider()
	f.fee = 5
	w := testWallet(t, f)
	w.aggOpts = AggregateOptions{MaxAggregateDenom: 3, MaxOutputDenom: types.MaxDenomination}

	a1, _ := w.GetNextAddress(types.ZoneCyprus1)
	fund(f, a1.Address, 1, 1, 2, 3, 7) // small: 5+5+10+50, big: 1000
	if err := w.Scan(context.Background(), types.ZoneCyprus1); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	balanceBefore := w.GetBalance(types.ZoneCyprus1)

	if _, err := w.Aggregate(context.Background(), types.ZoneCyprus1); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	decoded, err := tx.DecodeSigned(f.broadcasts[0])
	if err != nil {
		t.Fatalf("DecodeSigned: %v", err)
	}
	if err := decoded.VerifySignature(); err != nil {
		t.Errorf("signature did not verify: %v", err)
	}
	var inTotal uint64
	for _, in := range decoded.Ins {
		inTotal += in.PrevOut.Value()
	}
	if inTotal != decoded.TotalOutputValue()+f.fee {
		t.Errorf("inputs %d != outputs %d + fee %d", inTotal, decoded.TotalOutputValue(), f.fee)
	}
	if balanceBefore == 0 {
		t.Fatal("fixture should have funded the wallet")
	}
}

func TestWallet_ImportPrivateKey(t *testing.T) {
	w := testWallet(t, newFixtureProvider())

	// Deterministic key for the test.
	keyHex := "2bd806c97f0e00af1a1fc3328fa763a9269723c8db8fac4f93af71db186d6e90"
	info, err := w.ImportPrivateKey(keyHex)
	if err != nil {
		t.Fatalf("ImportPrivateKey: %v", err)
	}
	if info.Path != PathImported {
		t.Errorf("path = %q, want %q", info.Path, PathImported)
	}

	if _, err := w.ImportPrivateKey("0x" + keyHex); !errors.Is(err, ErrAddressExists) {
		t.Errorf("re-import err = %v, want ErrAddressExists", err)
	}

	// The imported key must be resolvable for signing.
	key, err := w.resolveSigner(info.Address)
	if err != nil {
		t.Fatalf("resolveSigner: %v", err)
	}
	if hex.EncodeToString(key.Serialize()) != keyHex {
		t.Error("resolved key does not match imported key")
	}
}

func TestWallet_ResolveSignerMatchesAddress(t *testing.T) {
	w := testWallet(t, newFixtureProvider())
	for _, alloc := range []func(types.Zone) (*AddressInfo, error){w.GetNextAddress, w.GetNextChangeAddress} {
		info, err := alloc(types.ZoneCyprus1)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		key, err := w.resolveSigner(info.Address)
		if err != nil {
			t.Fatalf("resolveSigner: %v", err)
		}
		if fmt.Sprintf("%x", key.PubKeyBytes()) != fmt.Sprintf("%x", info.PubKey) {
			t.Errorf("signer public key mismatch for %s", info.Address)
		}
	}
}
