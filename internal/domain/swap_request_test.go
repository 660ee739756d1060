package domain

import "testing"

func TestSwapStatusValid(t *testing.T) {
	for _, status := range []SwapStatus{SwapStatusPending, SwapStatusApproved, SwapStatusRejected, SwapStatusCancelled} {
		if !status.Valid() {
			t.Fatalf("%s 应为合法状态", status)
		}
	}

	if SwapStatus("done").Valid() {
		t.Fatal("未定义的状态不应通过校验")
	}
	if SwapStatus("").Valid() {
		t.Fatal("空状态不应通过校验")
	}
}
