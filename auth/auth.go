// auth/auth.go
package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Header carries the API token on REST requests.
const Header = "X-Lumi-Token"

const devPassword = "dev"

// TokenHash returns the bcrypt hash requests are checked against. A
// configured hash wins over a plain password; with neither, the development
// password is used.
func TokenHash(password, passwordHash string) ([]byte, error) {
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, errors.Join(errors.New("auth: invalid password hash"), err)
		}
		return []byte(passwordHash), nil
	}
	if password == "" {
		log.Warn().Msg("no API password configured, using the development password")
		password = devPassword
	}
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// Middleware rejects requests whose token does not match hash.
func Middleware(hash []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(Header)
		if token == "" || bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		return c.Next()
	}
}
