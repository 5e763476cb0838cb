// Package session keeps per-user state between requests: the cart, the
// checkout marker and a few identity fields. The session id is the
// authenticated user id, so a token-based client and a cookie-based client
// see the same session.
package session

import (
	"context"
	"errors"
	"strconv"
)

var ErrMissing = errors.New("session: key missing")

const (
	KeyCart         = "cart"
	KeyCurrentOrder = "current_order"
	KeyCheckoutKey  = "checkout_key"
	KeyUserName     = "user_name"
)

type Store interface {
	Get(ctx context.Context, sid, key string) ([]byte, error)
	Set(ctx context.Context, sid, key string, value []byte) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, sid, key string, value []byte) (bool, error)
	Delete(ctx context.Context, sid string, keys ...string) error
	Destroy(ctx context.Context, sid string) error
}

func ID(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
