package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrHoldTokenExpired is returned by Verify when the token's hold
// window has elapsed.  Callers translate it into a conflict rather
// than a validation failure: the token was genuine, the hold is
// simply over.
var ErrHoldTokenExpired = errors.New("hold token expired")

// HoldClaims is the decoded content of a hold token: which seats of
// which show the bearer holds, and until when.
type HoldClaims struct {
	ShowID    uint64
	SeatIDs   []uint64
	ExpiresAt time.Time
}

// Covers reports whether the claims include every given seat ID.
func (c *HoldClaims) Covers(seatIDs []uint64) bool {
	held := make(map[uint64]struct{}, len(c.SeatIDs))
	for _, id := range c.SeatIDs {
		held[id] = struct{}{}
	}
	for _, id := range seatIDs {
		if _, ok := held[id]; !ok {
			return false
		}
	}
	return true
}

// HoldTokens mints and verifies the opaque tokens that tie a hold to
// the session that created it.  A token is an HS256-signed JWT whose
// expiry equals the hold's reserved_until, so possession of seat IDs
// alone is not enough to finalize someone else's hold.
type HoldTokens struct {
	secret []byte
}

// NewHoldTokens returns a HoldTokens signing with the given secret.
func NewHoldTokens(secret string) *HoldTokens {
	return &HoldTokens{secret: []byte(secret)}
}

// Mint signs a token for the given hold.  The exp claim carries the
// hold expiry so verification rejects the token the moment the hold
// lapses, with no extra state.
func (h *HoldTokens) Mint(showID uint64, seatIDs []uint64, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"show_id":  showID,
		"seat_ids": seatIDs,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(h.secret)
}

// Verify parses and validates a token, returning its claims.  Expired
// tokens yield ErrHoldTokenExpired; any other failure means the token
// was never valid.
func (h *HoldTokens) Verify(token string) (*HoldClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrHoldTokenExpired
		}
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	showID, ok := claims["show_id"].(float64)
	if !ok {
		return nil, errors.New("missing show_id claim")
	}
	rawSeats, ok := claims["seat_ids"].([]interface{})
	if !ok {
		return nil, errors.New("missing seat_ids claim")
	}
	seatIDs := make([]uint64, 0, len(rawSeats))
	for _, raw := range rawSeats {
		n, ok := raw.(float64)
		if !ok {
			return nil, errors.New("malformed seat_ids claim")
		}
		seatIDs = append(seatIDs, uint64(n))
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.New("missing exp claim")
	}
	return &HoldClaims{
		ShowID:    uint64(showID),
		SeatIDs:   seatIDs,
		ExpiresAt: exp.Time.UTC(),
	}, nil
}
