package bili

import (
	"testing"
	"time"
)

const (
	testImgKey = "7cd084941338484aae1ad9425b84077c"
	testSubKey = "4932caff0ff746eab6f01bf08b70ac45"

	// Mixin derived from the two keys above.
	testMixinKey = "ea1db124af3c7062474693fa704f4ff8"
)

func fixedClockSigner(t *testing.T, unix int64) *Signer {
	t.Helper()
	s := NewSigner(testImgKey, testSubKey)
	s.now = func() time.Time { return time.Unix(unix, 0) }
	return s
}

func TestMixinKeyDerivation(t *testing.T) {
	s := NewSigner(testImgKey, testSubKey)
	if !s.Ready() {
		t.Fatal("signer with full key material should be ready")
	}
	if s.mixinKey != testMixinKey {
		t.Errorf("mixin key = %q, want %q", s.mixinKey, testMixinKey)
	}
	if len(s.mixinKey) != 32 {
		t.Errorf("mixin key length = %d, want 32", len(s.mixinKey))
	}
}

func TestSignKnownVector(t *testing.T) {
	s := fixedClockSigner(t, 1702204169)

	signed := s.Sign(map[string]string{
		"foo": "114",
		"bar": "514",
		"zab": "1919810",
	})
	if signed == nil {
		t.Fatal("Sign returned nil with key material loaded")
	}

	if got := signed.Get("w_rid"); got != "8f6f2b5b3d485fe1886cec6a0be8c5d4" {
		t.Errorf("w_rid = %q, want 8f6f2b5b3d485fe1886cec6a0be8c5d4", got)
	}
	if got := signed.Get("wts"); got != "1702204169" {
		t.Errorf("wts = %q, want 1702204169", got)
	}
	for k, want := range map[string]string{"foo": "114", "bar": "514", "zab": "1919810"} {
		if got := signed.Get(k); got != want {
			t.Errorf("param %s = %q, want %q", k, got, want)
		}
	}
}

func TestSignListingShapedVector(t *testing.T) {
	s := fixedClockSigner(t, 1700000000)

	params := map[string]string{
		"mid":          "1935882",
		"ps":           "30",
		"pn":           "1",
		"keyword":      "hello world!*",
		"order":        "pubdate",
		"platform":     "web",
		"web_location": "1550101",
	}
	signed := s.Sign(params)
	if signed == nil {
		t.Fatal("Sign returned nil")
	}

	if got := signed.Get("w_rid"); got != "15f2049f4e6e24250ee2ac9d017f335c" {
		t.Errorf("w_rid = %q, want 15f2049f4e6e24250ee2ac9d017f335c", got)
	}
	// The hash input filters ! and *, the request itself must not.
	if got := signed.Get("keyword"); got != "hello world!*" {
		t.Errorf("keyword = %q, original value must survive signing", got)
	}
}

func TestSignDeterministic(t *testing.T) {
	s := fixedClockSigner(t, 1702204169)
	params := map[string]string{"mid": "7", "order": "pubdate"}

	a := s.Sign(params).Get("w_rid")
	b := s.Sign(params).Get("w_rid")
	if a != b {
		t.Errorf("same inputs signed differently: %q vs %q", a, b)
	}
}

func TestSignWithoutKeys(t *testing.T) {
	for name, s := range map[string]*Signer{
		"empty fragments": NewSigner("", ""),
		"zero value":      {},
		"nil":             nil,
	} {
		t.Run(name, func(t *testing.T) {
			if s.Ready() {
				t.Error("signer without key material reports ready")
			}
			if got := s.Sign(map[string]string{"mid": "1"}); got != nil {
				t.Errorf("Sign without keys = %v, want nil", got)
			}
		})
	}
}

func TestWbiKeyFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "img url",
			url:  "https://i0.hdslb.com/bfs/wbi/7cd084941338484aae1ad9425b84077c.png",
			want: "7cd084941338484aae1ad9425b84077c",
		},
		{
			name: "sub url",
			url:  "https://i0.hdslb.com/bfs/wbi/4932caff0ff746eab6f01bf08b70ac45.png",
			want: "4932caff0ff746eab6f01bf08b70ac45",
		},
		{name: "empty", url: "", want: ""},
		{name: "no extension", url: "https://example.com/bfs/wbi/abcdef", want: "abcdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wbiKeyFromURL(tt.url); got != tt.want {
				t.Errorf("wbiKeyFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
