package miningseed

import (
	"math/big"
	"testing"
)

func TestFromIdentityTruncatesToLast32Bytes(t *testing.T) {
	identity := make([]byte, 40)
	identity[39] = 0x01 // most-significant byte of the last 32
	seed := FromIdentity(identity)
	if seed.Sign() == 0 {
		t.Fatalf("expected a non-zero seed")
	}
}

func TestFromIdentityNeverZero(t *testing.T) {
	seed := FromIdentity(make([]byte, 32))
	if seed.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected all-zero identity to yield seed=1, got %s", seed)
	}
}

func TestAdvanceIncrements(t *testing.T) {
	got := Advance(big.NewInt(5))
	if got.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("expected 6, got %s", got)
	}
}

func TestAdvanceWrapsAroundSkippingZero(t *testing.T) {
	got := Advance(new(big.Int).Set(u256Max))
	if got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected wrap-around to 1, got %s", got)
	}
}
