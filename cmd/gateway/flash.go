package main

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

const flashCookieName = "flash"

type flashKey struct{}

// flashBag holds the messages visible to one request: those carried in from
// the cookie plus any added while handling it.
type flashBag struct {
	messages []string
	// dirty means a flash cookie exists on the client or was set in this response.
	dirty bool
}

// flashClaims is the signed payload of the flash cookie.
type flashClaims struct {
	Messages []string `json:"messages"`
	jwt.RegisteredClaims
}

// flashStore carries one-shot messages across a redirect in an HS256-signed cookie.
type flashStore struct {
	secret []byte
}

func newFlashStore(secret []byte) *flashStore {
	return &flashStore{secret: secret}
}

// Middleware loads the inbound flash cookie into the request context.
func (f *flashStore) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bag := &flashBag{}
		if c, err := r.Cookie(flashCookieName); err == nil {
			bag.dirty = true
			bag.messages = f.decode(c.Value)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), flashKey{}, bag)))
	})
}

// Add queues msg. It is shown by the next render, in this request or after a redirect.
func (f *flashStore) Add(w http.ResponseWriter, r *http.Request, msg string) {
	bag := bagFrom(r)
	bag.messages = append(bag.messages, msg)
	bag.dirty = true
	http.SetCookie(w, f.cookie(f.encode(bag.messages), 0))
}

// Pop returns and clears all pending messages.
func (f *flashStore) Pop(w http.ResponseWriter, r *http.Request) []string {
	bag := bagFrom(r)
	msgs := bag.messages
	bag.messages = nil
	if bag.dirty {
		http.SetCookie(w, f.cookie("", -1))
		bag.dirty = false
	}
	if msgs == nil {
		msgs = []string{}
	}
	return msgs
}

func bagFrom(r *http.Request) *flashBag {
	if bag, ok := r.Context().Value(flashKey{}).(*flashBag); ok {
		return bag
	}
	return &flashBag{}
}

func (f *flashStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (f *flashStore) encode(messages []string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &flashClaims{
		Messages:         messages,
		RegisteredClaims: jwt.RegisteredClaims{Subject: flashCookieName},
	})
	signed, err := token.SignedString(f.secret)
	if err != nil {
		return ""
	}
	return signed
}

// decode returns nil for tampered or malformed values.
func (f *flashStore) decode(value string) []string {
	claims := &flashClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (interface{}, error) {
		return f.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(flashCookieName),
	)
	if err != nil || !token.Valid {
		return nil
	}
	return claims.Messages
}
