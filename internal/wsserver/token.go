// apps/duel-server/internal/wsserver/token.go
//
// Resume tokens: an HS256-signed wrapper around the (gameId, playerId) pair
// issued at game start. Clients may persist the single token instead of the
// two ids and present it on rejoin.
package wsserver

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

var errBadResumeToken = errors.New("invalid resume token")

// ResumeTokenIssuer returns a signer closure suitable for duel.Config.
// Returns "" on signing failure so snapshots simply omit the token.
func ResumeTokenIssuer(secret []byte) func(gameID, playerID string) string {
	return func(gameID, playerID string) string {
		t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"gameId":   gameID,
			"playerId": playerID,
			"iat":      time.Now().Unix(),
		})
		s, err := t.SignedString(secret)
		if err != nil {
			log.Warn().Err(err).Msg("sign resume token")
			return ""
		}
		return s
	}
}

// parseResumeToken verifies the signature and extracts the session ids.
func parseResumeToken(secret []byte, token string) (gameID, playerID string, err error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return "", "", errBadResumeToken
	}
	gameID, _ = claims["gameId"].(string)
	playerID, _ = claims["playerId"].(string)
	if gameID == "" || playerID == "" {
		return "", "", errBadResumeToken
	}
	return gameID, playerID, nil
}
