package wallet

import (
	"testing"

	"github.com/quainet/qi-wallet/pkg/types"
)

func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ks, err := NewKeystore(t.TempDir())
	if err != nil {
		t.Fatalf("NewKeystore: %v", err)
	}
	return ks
}

func TestKeystore_CreateLoadRoundTrip(t *testing.T) {
	ks := testKeystore(t)
	w := populatedWallet(t)
	password := []byte("hunter2")

	if err := ks.Create("main", w, password, fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	serialized, err := ks.Load("main", password)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	restored, err := Deserialize(serialized, "", nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if restored.book.Len() != w.book.Len() {
		t.Errorf("address count = %d, want %d", restored.book.Len(), w.book.Len())
	}
}

func TestKeystore_CreateRefusesOverwrite(t *testing.T) {
	ks := testKeystore(t)
	w := populatedWallet(t)

	if err := ks.Create("main", w, []byte("pw"), fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ks.Create("main", w, []byte("pw"), fastParams()); err == nil {
		t.Error("second Create with same name should fail")
	}
}

func TestKeystore_SaveOverwrites(t *testing.T) {
	ks := testKeystore(t)
	w := populatedWallet(t)
	password := []byte("pw")

	if err := ks.Create("main", w, password, fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	before := w.book.Len()
	if _, err := w.GetNextAddress(types.ZoneCyprus2); err != nil {
		t.Fatalf("GetNextAddress: %v", err)
	}
	if err := ks.Save("main", w, password, fastParams()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	serialized, err := ks.Load("main", password)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	restored, err := Deserialize(serialized, "", nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if restored.book.Len() != before+1 {
		t.Errorf("address count after save = %d, want %d", restored.book.Len(), before+1)
	}
}

func TestKeystore_LoadWrongPassword(t *testing.T) {
	ks := testKeystore(t)
	if err := ks.Create("main", populatedWallet(t), []byte("right"), fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ks.Load("main", []byte("wrong")); err == nil {
		t.Error("Load with wrong password should fail")
	}
}

func TestKeystore_ListAndDelete(t *testing.T) {
	ks := testKeystore(t)
	w := populatedWallet(t)
	if err := ks.Create("alpha", w, []byte("pw"), fastParams()); err != nil {
		t.Fatalf("Create alpha: %v", err)
	}
	if err := ks.Create("beta", w, []byte("pw"), fastParams()); err != nil {
		t.Fatalf("Create beta: %v", err)
	}

	names, err := ks.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("List = %v, want 2 names", names)
	}

	if err := ks.Delete("alpha"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := ks.Delete("alpha"); err == nil {
		t.Error("deleting a missing wallet should fail")
	}
	names, _ = ks.List()
	if len(names) != 1 || names[0] != "beta" {
		t.Errorf("List after delete = %v, want [beta]", names)
	}
}
