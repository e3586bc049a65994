package bili

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// mixinKeyEncTab is the fixed permutation the web player applies to the
// concatenated key material. The table is part of the signing contract and
// must not change.
var mixinKeyEncTab = [64]int{
	46, 47, 18, 2, 53, 8, 23, 32, 15, 50, 10, 31, 58, 3, 45, 35,
	27, 43, 5, 49, 33, 9, 42, 19, 29, 28, 14, 39, 12, 38, 41, 13,
	37, 48, 7, 16, 24, 55, 40, 61, 26, 17, 0, 1, 60, 51, 30, 4,
	22, 25, 54, 21, 56, 59, 6, 63, 57, 62, 11, 36, 20, 34, 44, 52,
}

// Signer computes the w_rid request signature demanded by the wbi-guarded
// endpoints. The key material rotates server-side roughly daily; a signer
// holds one derivation and is replaced wholesale on refresh.
type Signer struct {
	mixinKey string
	now      func() time.Time
}

// NewSigner derives the session mixin key from the two key fragments taken
// from the nav endpoint's wbi_img URLs. Empty fragments yield a signer that
// is not Ready and refuses to sign.
func NewSigner(imgKey, subKey string) *Signer {
	return &Signer{
		mixinKey: mixinKey(imgKey + subKey),
		now:      time.Now,
	}
}

func mixinKey(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(mixinKeyEncTab))
	for _, idx := range mixinKeyEncTab {
		if idx < len(raw) {
			b.WriteByte(raw[idx])
		}
	}
	key := b.String()
	if len(key) > 32 {
		key = key[:32]
	}
	return key
}

// Ready reports whether key material is loaded.
func (s *Signer) Ready() bool {
	return s != nil && s.mixinKey != ""
}

// valueFilter drops the characters the platform strips from parameter values
// before hashing. Only the hash input is filtered; the request itself carries
// the original values.
var valueFilter = strings.NewReplacer("!", "", "'", "", "(", "", ")", "", "*", "")

// Sign returns the full query for a wbi-guarded call: the original params
// plus wts (current Unix seconds) and the computed w_rid. The hash input is
// the bytewise key-sorted, URL-encoded form of the filtered params with the
// mixin key appended. Returns nil when no key material is loaded; callers
// must refresh keys first.
func (s *Signer) Sign(params map[string]string) url.Values {
	if !s.Ready() {
		return nil
	}

	wts := strconv.FormatInt(s.now().Unix(), 10)

	hashInput := url.Values{}
	for k, v := range params {
		hashInput.Set(k, valueFilter.Replace(v))
	}
	hashInput.Set("wts", wts)

	sum := md5.Sum([]byte(hashInput.Encode() + s.mixinKey))

	signed := url.Values{}
	for k, v := range params {
		signed.Set(k, v)
	}
	signed.Set("wts", wts)
	signed.Set("w_rid", hex.EncodeToString(sum[:]))
	return signed
}
