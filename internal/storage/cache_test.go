package storage

import (
	"strings"
	"testing"
)

func TestContentKeyDeterministic(t *testing.T) {
	a := ContentKey([]byte("same document bytes"))
	b := ContentKey([]byte("same document bytes"))
	if a != b {
		t.Errorf("identical content produced different keys: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, cacheKeyPrefix) {
		t.Errorf("key missing prefix: %q", a)
	}
}

func TestContentKeyDistinguishesContent(t *testing.T) {
	if ContentKey([]byte("document a")) == ContentKey([]byte("document b")) {
		t.Error("different content must produce different keys")
	}
}
