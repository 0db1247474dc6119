package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testJWTService() *JWTService {
	return &JWTService{
		AccessTokenDuration: time.Hour,
		jwtSecretKey:        "test-secret",
	}
}

func TestJWTRoundTrip(t *testing.T) {
	svc := testJWTService()

	token, err := svc.ToJWT("u1")
	if err != nil {
		t.Fatalf("ToJWT: %v", err)
	}

	userID, err := svc.VerifyJWTToken(token)
	if err != nil {
		t.Fatalf("VerifyJWTToken: %v", err)
	}
	if userID != "u1" {
		t.Errorf("user id = %q, want u1", userID)
	}
}

func TestJWTRejectsWrongKey(t *testing.T) {
	token, err := testJWTService().ToJWT("u1")
	if err != nil {
		t.Fatalf("ToJWT: %v", err)
	}

	other := &JWTService{AccessTokenDuration: time.Hour, jwtSecretKey: "other-secret"}
	if _, err := other.VerifyJWTToken(token); err == nil {
		t.Error("token signed with different key accepted")
	}
}

func TestJWTRejectsExpired(t *testing.T) {
	svc := &JWTService{AccessTokenDuration: -time.Minute, jwtSecretKey: "test-secret"}

	token, err := svc.ToJWT("u1")
	if err != nil {
		t.Fatalf("ToJWT: %v", err)
	}

	if _, err := svc.VerifyJWTToken(token); err == nil {
		t.Error("expired token accepted")
	}
}

func TestJWTRejectsWrongAlgorithm(t *testing.T) {
	svc := testJWTService()

	// alg=none with an empty signature must not verify.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{UserID: "u1"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.VerifyJWTToken(token); err == nil {
		t.Error("alg=none token accepted")
	}
}

func TestGenerateSessionExpiry(t *testing.T) {
	svc := testJWTService()

	session, err := svc.GenerateSession("u1")
	if err != nil {
		t.Fatalf("GenerateSession: %v", err)
	}
	if session.AccessToken == "" {
		t.Error("access token empty")
	}
	if session.ExpiresIn != 3600 {
		t.Errorf("expires_in = %d, want 3600", session.ExpiresIn)
	}

	until := time.Until(time.Unix(session.ExpiresAt, 0))
	if until < 59*time.Minute || until > 61*time.Minute {
		t.Errorf("expires_at %v away, want about an hour", until)
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	svc := testJWTService()

	for header, want := range map[string]string{
		"Bearer abc.def.ghi": "abc.def.ghi",
		"bearer abc.def.ghi": "",
		"abc.def.ghi":        "",
		"Bearer":             "",
		"":                   "",
	} {
		if got := svc.ExtractTokenFromHeader(header); got != want {
			t.Errorf("ExtractTokenFromHeader(%q) = %q, want %q", header, got, want)
		}
	}
}
