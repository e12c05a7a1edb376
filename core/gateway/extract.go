package gateway

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// TokenSource records which channel a credential was taken from.
type TokenSource int

const (
	SourceNone TokenSource = iota
	SourceHeader
	SourceWebSocket
	SourceCookie
	SourceQuery
)

func (s TokenSource) String() string {
	switch s {
	case SourceHeader:
		return "header"
	case SourceWebSocket:
		return "websocket"
	case SourceCookie:
		return "cookie"
	case SourceQuery:
		return "query"
	default:
		return "none"
	}
}

// wsTokenProtocol is the subprotocol prefix browser clients use to smuggle
// a bearer token through the WebSocket handshake, since the browser API
// cannot set an Authorization header.
const wsTokenProtocol = "fanforge-token"

// queryTokenParam is the fallback for webhook callers that can set neither
// headers nor cookies.
const queryTokenParam = "token"

// ExtractToken pulls the bearer credential from the request. Precedence is
// fixed: Authorization header, then WebSocket subprotocol, then the session
// cookie, then the token query parameter. The first non-empty channel wins
// and later channels are not consulted.
func ExtractToken(r *http.Request, cookieName string) (string, TokenSource) {
	if tok := bearerFromHeader(r); tok != "" {
		return tok, SourceHeader
	}
	if websocket.IsWebSocketUpgrade(r) {
		if tok := tokenFromSubprotocol(r); tok != "" {
			return tok, SourceWebSocket
		}
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value, SourceCookie
		}
	}
	if tok := r.URL.Query().Get(queryTokenParam); tok != "" {
		return tok, SourceQuery
	}
	return "", SourceNone
}

func bearerFromHeader(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	const prefix = "bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// tokenFromSubprotocol scans Sec-WebSocket-Protocol for a
// "fanforge-token.<jwt>" entry. The token rides after the prefix because
// subprotocol names cannot contain most separator characters a JWT avoids.
func tokenFromSubprotocol(r *http.Request) string {
	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, proto := range strings.Split(header, ",") {
			proto = strings.TrimSpace(proto)
			if rest, ok := strings.CutPrefix(proto, wsTokenProtocol+"."); ok && rest != "" {
				return rest
			}
		}
	}
	return ""
}
