package serverutils

import (
	"os"
	"time"

	"gym-saas-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const principalKey = "principal"

const tokenTTL = 24 * time.Hour

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// IssueToken signs an access token for the given principal.
func IssueToken(p entity.Principal) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  p.SubjectId.String(),
		"role":     string(p.Role),
		"admin_id": p.AdminId.String(),
		"exp":      time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
	}

	principal, ok := principalFromClaims(claims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
	}

	ctx.Locals("user_id", principal.SubjectId.String())
	ctx.Locals(principalKey, principal)
	return ctx.Next()
}

func principalFromClaims(claims jwt.MapClaims) (entity.Principal, bool) {
	userId, err := uuid.Parse(stringClaim(claims, "user_id"))
	if err != nil {
		return entity.Principal{}, false
	}

	switch entity.PrincipalRole(stringClaim(claims, "role")) {
	case entity.PrincipalRoleAdmin:
		return entity.Principal{Role: entity.PrincipalRoleAdmin, SubjectId: userId, AdminId: userId}, true
	case entity.PrincipalRoleTrainer:
		adminId, err := uuid.Parse(stringClaim(claims, "admin_id"))
		if err != nil {
			return entity.Principal{}, false
		}
		return entity.Principal{Role: entity.PrincipalRoleTrainer, SubjectId: userId, AdminId: adminId}, true
	}
	return entity.Principal{}, false
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}

// GetPrincipal returns the caller stored by JwtMiddleware.
func GetPrincipal(ctx *fiber.Ctx) (entity.Principal, bool) {
	p, ok := ctx.Locals(principalKey).(entity.Principal)
	return p, ok
}

// AdminOnly rejects trainers. Must run after JwtMiddleware.
func AdminOnly(ctx *fiber.Ctx) error {
	p, ok := GetPrincipal(ctx)
	if !ok || !p.IsAdmin() {
		return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(fiber.StatusForbidden, "Admin access required"))
	}
	return ctx.Next()
}
