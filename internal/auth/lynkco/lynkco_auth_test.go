package lynkco

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestAuth(tokenURL, deviceLoginURL string) *LynkAuth {
	return &LynkAuth{
		httpClient:     http.DefaultClient,
		tokenURL:       tokenURL,
		deviceLoginURL: deviceLoginURL,
	}
}

func testPKCE(t *testing.T) *PKCECodes {
	t.Helper()
	pkce, err := GeneratePKCECodes()
	if err != nil {
		t.Fatalf("GeneratePKCECodes() error = %v", err)
	}
	return pkce
}

func TestGenerateAuthURL(t *testing.T) {
	auth := newTestAuth("", "")
	pkce := testPKCE(t)

	authURL, err := auth.GenerateAuthURL("state123", pkce)
	if err != nil {
		t.Fatalf("GenerateAuthURL() error = %v", err)
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("authorization URL does not parse: %v", err)
	}

	query := parsed.Query()
	if query.Get("code_challenge") != pkce.CodeChallenge {
		t.Errorf("code_challenge = %q, want %q", query.Get("code_challenge"), pkce.CodeChallenge)
	}
	if query.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %q, want S256", query.Get("code_challenge_method"))
	}
	if query.Get("client_id") != ClientID {
		t.Errorf("client_id = %q, want %q", query.Get("client_id"), ClientID)
	}
	if query.Get("state") != "state123" {
		t.Errorf("state = %q, want state123", query.Get("state"))
	}
	if !strings.HasPrefix(query.Get("redirect_uri"), RedirectURIPrefix) {
		t.Errorf("redirect_uri %q does not carry the msauth prefix", query.Get("redirect_uri"))
	}
}

func TestGenerateAuthURL_RequiresPKCE(t *testing.T) {
	auth := newTestAuth("", "")
	if _, err := auth.GenerateAuthURL("state", nil); err == nil {
		t.Error("GenerateAuthURL(nil PKCE) expected error")
	}
}

func TestIsValidRedirectURI(t *testing.T) {
	tests := []struct {
		name        string
		redirectURI string
		want        bool
	}{
		{
			name:        "registered msauth scheme",
			redirectURI: RedirectURIPrefix + "?code=abc123",
			want:        true,
		},
		{
			name:        "https URL is rejected",
			redirectURI: "https://evil.example/",
			want:        false,
		},
		{
			name:        "other msauth app is rejected",
			redirectURI: "msauth://some.other.app/?code=abc",
			want:        false,
		},
		{
			name:        "empty string is rejected",
			redirectURI: "",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidRedirectURI(tt.redirectURI); got != tt.want {
				t.Errorf("IsValidRedirectURI(%q) = %v, want %v", tt.redirectURI, got, tt.want)
			}
		})
	}
}

func TestExchangeRedirectURI(t *testing.T) {
	var gotGrant, gotCode, gotVerifier string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		gotGrant = r.PostFormValue("grant_type")
		gotCode = r.PostFormValue("code")
		gotVerifier = r.PostFormValue("code_verifier")

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"id_token":      "idt-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer server.Close()

	auth := newTestAuth(server.URL, "")
	pkce := testPKCE(t)

	triple, err := auth.ExchangeRedirectURI(context.Background(), RedirectURIPrefix+"?code=authcode42", pkce)
	if err != nil {
		t.Fatalf("ExchangeRedirectURI() error = %v", err)
	}

	if gotGrant != "authorization_code" {
		t.Errorf("grant_type = %q, want authorization_code", gotGrant)
	}
	if gotCode != "authcode42" {
		t.Errorf("code = %q, want authcode42", gotCode)
	}
	if gotVerifier != pkce.CodeVerifier {
		t.Errorf("code_verifier = %q, want the attempt's verifier", gotVerifier)
	}
	if triple.AccessToken != "at-1" || triple.RefreshToken != "rt-1" || triple.IDToken != "idt-1" {
		t.Errorf("TokenTriple = %+v, want at-1/rt-1/idt-1", triple)
	}
}

func TestExchangeRedirectURI_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			},
		},
		{
			name: "missing refresh token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]string{
					"access_token": "at-1",
					"id_token":     "idt-1",
				})
			},
		},
		{
			name: "missing id token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]string{
					"access_token":  "at-1",
					"refresh_token": "rt-1",
				})
			},
		},
		{
			name: "body is not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			auth := newTestAuth(server.URL, "")
			_, err := auth.ExchangeRedirectURI(context.Background(), RedirectURIPrefix+"?code=c", testPKCE(t))
			if err == nil {
				t.Fatal("ExchangeRedirectURI() expected error")
			}
			if !IsKind(err, ErrLoginFailed) {
				t.Errorf("error kind = %v, want login_failed", err)
			}
		})
	}
}

func TestExchangeRedirectURI_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	auth := newTestAuth(server.URL, "")
	_, err := auth.ExchangeRedirectURI(context.Background(), RedirectURIPrefix+"?code=c", testPKCE(t))
	if err == nil {
		t.Fatal("ExchangeRedirectURI() expected error")
	}
	if !IsKind(err, ErrLoginFailed) {
		t.Errorf("error kind = %v, want login_failed", err)
	}
}

func TestExchangeRedirectURI_NoCodeInRedirect(t *testing.T) {
	auth := newTestAuth("http://unused.invalid", "")
	_, err := auth.ExchangeRedirectURI(context.Background(), RedirectURIPrefix, testPKCE(t))
	if err == nil {
		t.Fatal("ExchangeRedirectURI() expected error")
	}
	if !IsKind(err, ErrLoginFailed) {
		t.Errorf("error kind = %v, want login_failed", err)
	}
}

func TestRefreshTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if got := r.PostFormValue("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		if got := r.PostFormValue("refresh_token"); got != "rt-old" {
			t.Errorf("refresh_token = %q, want rt-old", got)
		}

		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "at-2",
			"refresh_token": "rt-2",
			"id_token":      "idt-2",
		})
	}))
	defer server.Close()

	auth := newTestAuth(server.URL, "")
	triple, err := auth.RefreshTokens(context.Background(), "rt-old")
	if err != nil {
		t.Fatalf("RefreshTokens() error = %v", err)
	}
	if triple.RefreshToken != "rt-2" {
		t.Errorf("RefreshToken = %q, want rt-2", triple.RefreshToken)
	}
}

func TestRefreshTokens_RequiresToken(t *testing.T) {
	auth := newTestAuth("", "")
	if _, err := auth.RefreshTokens(context.Background(), ""); err == nil {
		t.Error("RefreshTokens(\"\") expected error")
	}
}

func TestDeviceLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("Authorization = %q, want Bearer at-1", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"cccToken": "ccc-42"},
		})
	}))
	defer server.Close()

	auth := newTestAuth("", server.URL)
	ccc, err := auth.DeviceLogin(context.Background(), "at-1")
	if err != nil {
		t.Fatalf("DeviceLogin() error = %v", err)
	}
	if ccc != "ccc-42" {
		t.Errorf("DeviceLogin() = %q, want ccc-42", ccc)
	}
}

func TestDeviceLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "denied", http.StatusForbidden)
			},
		},
		{
			name: "empty ccc token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"data": map[string]string{"cccToken": ""},
				})
			},
		},
		{
			name: "body is not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("oops"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			auth := newTestAuth("", server.URL)
			_, err := auth.DeviceLogin(context.Background(), "at-1")
			if err == nil {
				t.Fatal("DeviceLogin() expected error")
			}
			if !IsKind(err, ErrCCCUnavailable) {
				t.Errorf("error kind = %v, want ccc_unavailable", err)
			}
		})
	}
}
