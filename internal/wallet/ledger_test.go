package wallet

import (
	"testing"

	"github.com/quainet/qi-wallet/pkg/types"
)

// testBook returns an address book knowing the addresses of the given
// outpoints.
func testBook(outpoints ...types.OutpointInfo) *addressBook {
	book := newAddressBook()
	for i, info := range outpoints {
		book.Add(&AddressInfo{
			Address: info.Address,
			Index:   uint32(i),
			Path:    PathExternal,
			Zone:    info.Zone,
		})
	}
	return book
}

func TestLedger_ImportAndBalance(t *testing.T) {
	outpoints := makeOutpoints(2, 3, 4) // 10 + 50 + 100
	ledger := NewOutpointLedger()
	book := testBook(outpoints...)

	if err := ledger.Import(book, outpoints); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got := ledger.BalanceForZone(types.ZoneCyprus1, 0); got != 160 {
		t.Errorf("balance = %d, want 160", got)
	}
	if got := len(ledger.Outpoints(types.ZoneCyprus1)); got != 3 {
		t.Errorf("outpoints = %d, want 3", got)
	}
}

func TestLedger_ImportDeduplicates(t *testing.T) {
	outpoints := makeOutpoints(3)
	ledger := NewOutpointLedger()
	book := testBook(outpoints...)

	if err := ledger.Import(book, outpoints); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if err := ledger.Import(book, outpoints); err != nil {
		t.Fatalf("second import: %v", err)
	}
	if got := len(ledger.Outpoints(types.ZoneCyprus1)); got != 1 {
		t.Errorf("outpoints after duplicate import = %d, want 1", got)
	}
}

func TestLedger_ImportRejectsUnknownAddress(t *testing.T) {
	known := makeOutpoints(3)
	unknown := qiOutpoint(0x99, 4)

	ledger := NewOutpointLedger()
	book := testBook(known...)
	if err := ledger.Import(book, []types.OutpointInfo{unknown}); err == nil {
		t.Error("outpoint for unknown address should be rejected")
	}
}

func TestLedger_ImportRejectsInvalidOutpoint(t *testing.T) {
	bad := qiOutpoint(1, 3)
	bad.Outpoint.Denomination = 99

	ledger := NewOutpointLedger()
	book := testBook(bad)
	if err := ledger.Import(book, []types.OutpointInfo{bad}); err == nil {
		t.Error("invalid denomination should be rejected")
	}
}

func TestLedger_LockedBalance(t *testing.T) {
	locked := qiOutpoint(1, 3)
	locked.Outpoint.Lock = 100
	free := qiOutpoint(2, 4)

	ledger := NewOutpointLedger()
	book := testBook(locked, free)
	if err := ledger.Import(book, []types.OutpointInfo{locked, free}); err != nil {
		t.Fatalf("Import: %v", err)
	}

	// Below the lock height only the free outpoint is spendable.
	if got := ledger.BalanceForZone(types.ZoneCyprus1, 50); got != 100 {
		t.Errorf("spendable at height 50 = %d, want 100", got)
	}
	if got := ledger.LockedBalance(types.ZoneCyprus1, 50); got != 50 {
		t.Errorf("locked at height 50 = %d, want 50", got)
	}

	// At the lock height the outpoint matures.
	if got := ledger.BalanceForZone(types.ZoneCyprus1, 100); got != 150 {
		t.Errorf("spendable at height 100 = %d, want 150", got)
	}
	if got := ledger.LockedBalance(types.ZoneCyprus1, 100); got != 0 {
		t.Errorf("locked at height 100 = %d, want 0", got)
	}
}

func TestLedger_Remove(t *testing.T) {
	outpoints := makeOutpoints(2, 3)
	ledger := NewOutpointLedger()
	book := testBook(outpoints...)
	if err := ledger.Import(book, outpoints); err != nil {
		t.Fatalf("Import: %v", err)
	}

	ledger.Remove(types.ZoneCyprus1, []string{outpoints[0].Outpoint.Key()})
	remaining := ledger.Outpoints(types.ZoneCyprus1)
	if len(remaining) != 1 {
		t.Fatalf("outpoints after remove = %d, want 1", len(remaining))
	}
	if remaining[0].Outpoint.Key() != outpoints[1].Outpoint.Key() {
		t.Error("wrong outpoint removed")
	}
}

func TestLedger_Reconcile(t *testing.T) {
	old := qiOutpoint(1, 3)
	ledger := NewOutpointLedger()
	book := testBook(old)
	if err := ledger.Import(book, []types.OutpointInfo{old}); err != nil {
		t.Fatalf("Import: %v", err)
	}

	// Upstream now shows a different outpoint for the same address: the
	// old one was spent, a new one appeared.
	fresh := old
	fresh.Outpoint.TxHash = types.Hash{0xaa}
	fresh.Outpoint.Denomination = 4

	active := ledger.Reconcile(types.ZoneCyprus1, old.Address, []types.OutpointInfo{fresh})
	if !active {
		t.Error("address with activity should report active")
	}
	got := ledger.OutpointsForAddress(types.ZoneCyprus1, old.Address)
	if len(got) != 1 || got[0].Outpoint.Key() != fresh.Outpoint.Key() {
		t.Errorf("reconciled outpoints = %v, want only the fresh one", got)
	}

	// Upstream empties out: vanished outpoints are dropped, and the
	// address still reports past activity.
	active = ledger.Reconcile(types.ZoneCyprus1, old.Address, nil)
	if !active {
		t.Error("address that previously held outpoints should report active")
	}
	if got := ledger.OutpointsForAddress(types.ZoneCyprus1, old.Address); len(got) != 0 {
		t.Errorf("outpoints after empty reconcile = %d, want 0", len(got))
	}

	// A never-active address reports inactive.
	quiet := types.Address{0x00, 0x80, 0x55}
	if ledger.Reconcile(types.ZoneCyprus1, quiet, nil) {
		t.Error("address with no history should report inactive")
	}
}
