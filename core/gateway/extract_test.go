package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractTokenHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/feed", nil)
	r.Header.Set("Authorization", "Bearer abc.def.ghi")

	tok, source := ExtractToken(r, "ff_session")
	if tok != "abc.def.ghi" || source != SourceHeader {
		t.Fatalf("got %q from %v", tok, source)
	}
}

func TestExtractTokenHeaderCaseInsensitive(t *testing.T) {
	r := httptest.NewRequest("GET", "/feed", nil)
	r.Header.Set("Authorization", "bEaReR abc.def.ghi")

	tok, source := ExtractToken(r, "ff_session")
	if tok != "abc.def.ghi" || source != SourceHeader {
		t.Fatalf("got %q from %v", tok, source)
	}
}

func TestExtractTokenPrecedence(t *testing.T) {
	r := httptest.NewRequest("GET", "/feed?token=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	r.AddCookie(&http.Cookie{Name: "ff_session", Value: "from-cookie"})

	tok, source := ExtractToken(r, "ff_session")
	if tok != "from-header" || source != SourceHeader {
		t.Fatalf("header should win, got %q from %v", tok, source)
	}
}

func TestExtractTokenCookieBeatsQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/feed?token=from-query", nil)
	r.AddCookie(&http.Cookie{Name: "ff_session", Value: "from-cookie"})

	tok, source := ExtractToken(r, "ff_session")
	if tok != "from-cookie" || source != SourceCookie {
		t.Fatalf("cookie should win, got %q from %v", tok, source)
	}
}

func TestExtractTokenQueryFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/hooks/cb?token=from-query", nil)

	tok, source := ExtractToken(r, "ff_session")
	if tok != "from-query" || source != SourceQuery {
		t.Fatalf("got %q from %v", tok, source)
	}
}

func TestExtractTokenWebSocketSubprotocol(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws/chat", nil)
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Upgrade", "websocket")
	r.Header.Set("Sec-WebSocket-Protocol", "chat, fanforge-token.abc.def.ghi")

	tok, source := ExtractToken(r, "ff_session")
	if tok != "abc.def.ghi" || source != SourceWebSocket {
		t.Fatalf("got %q from %v", tok, source)
	}
}

func TestExtractTokenWebSocketRequiresUpgrade(t *testing.T) {
	// Without upgrade headers the subprotocol channel is not consulted.
	r := httptest.NewRequest("GET", "/ws/chat", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "fanforge-token.abc.def.ghi")

	if tok, source := ExtractToken(r, "ff_session"); tok != "" || source != SourceNone {
		t.Fatalf("got %q from %v", tok, source)
	}
}

func TestExtractTokenNone(t *testing.T) {
	r := httptest.NewRequest("GET", "/feed", nil)
	if tok, source := ExtractToken(r, "ff_session"); tok != "" || source != SourceNone {
		t.Fatalf("got %q from %v", tok, source)
	}
}

func TestExtractTokenEmptyBearer(t *testing.T) {
	r := httptest.NewRequest("GET", "/feed", nil)
	r.Header.Set("Authorization", "Bearer ")
	if tok, _ := ExtractToken(r, "ff_session"); tok != "" {
		t.Fatalf("expected no token, got %q", tok)
	}
}
