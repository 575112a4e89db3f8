package internal

import (
	"fmt"
	"testing"
)

var headerInputs = []string{
	`Bearer {"device":{"token":"eyJhbGciOiJFZERTQSJ9.eyJzdWIiOiJkZXYtMSJ9.c2ln"}}`,
	`Bearer {"user":{"name":"mimi","password":"hunter2"}}`,
	`Bearer {"device":{"token":"t"},"otp":{"code":"123456"},"user":{"name":"mimi"}}`,
}

func TestFastHashStable(t *testing.T) {
	for _, in := range headerInputs {
		if FastHash(in) != FastHash(in) {
			t.Errorf("FastHash(%q) is not stable", in)
		}
	}

	if FastHash(headerInputs[0]) == FastHash(headerInputs[1]) {
		t.Error("different inputs hashed to the same value")
	}
}

func BenchmarkFastHash(b *testing.B) {
	for i, in := range headerInputs {
		b.Run(fmt.Sprintf("header-%d", i), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_ = FastHash(in)
			}
		})
	}
}

func BenchmarkSHA256sum(b *testing.B) {
	for i, in := range headerInputs {
		b.Run(fmt.Sprintf("header-%d", i), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_ = SHA256sum(in)
			}
		})
	}
}
