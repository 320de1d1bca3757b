package auth

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTokenCodecRoundTrip(t *testing.T) {
	codec := NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"))

	token := codec.EncodeSessionID("sess-123")
	if token == "sess-123" {
		t.Fatal("token should carry a signature")
	}

	id, ok := codec.DecodeSessionID(token)
	if !ok || id != "sess-123" {
		t.Fatalf("decode failed: %q %v", id, ok)
	}
}

func TestTokenCodecRejectsTampering(t *testing.T) {
	codec := NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"))
	token := codec.EncodeSessionID("sess-123")

	tampered := strings.Replace(token, "sess-123", "sess-124", 1)
	if _, ok := codec.DecodeSessionID(tampered); ok {
		t.Fatal("tampered token accepted")
	}

	other := NewTokenCodec([]byte("ffffffffffffffffffffffffffffffff"))
	if _, ok := other.DecodeSessionID(token); ok {
		t.Fatal("token signed with a different secret accepted")
	}

	if _, ok := codec.DecodeSessionID("garbage"); ok {
		t.Fatal("unsigned token accepted")
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if _, ok := BearerToken(r); ok {
		t.Fatal("missing header should not yield a token")
	}

	r.Header.Set("Authorization", "Bearer abc.def")
	token, ok := BearerToken(r)
	if !ok || token != "abc.def" {
		t.Fatalf("unexpected token: %q %v", token, ok)
	}

	r.Header.Set("Authorization", "Basic abc")
	if _, ok := BearerToken(r); ok {
		t.Fatal("non-bearer scheme accepted")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	if err != nil || !ok {
		t.Fatalf("verify: %v %v", ok, err)
	}

	ok, err = VerifyPassword(hash, "wrong password")
	if err != nil {
		t.Fatalf("verify wrong: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}
