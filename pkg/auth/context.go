package auth

import "context"

type contextKey string

const handshakeTokenKey = contextKey("handshake-token")

// WithHandshakeToken attaches the token found on the websocket upgrade
// request to the connection context.
func WithHandshakeToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, handshakeTokenKey, token)
}

// HandshakeToken returns the token attached by WithHandshakeToken.
func HandshakeToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(handshakeTokenKey).(string)
	return token, ok && token != ""
}
