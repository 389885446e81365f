// Package jwt signs and verifies HS256 session tokens.
//
// Service accepts any JSON-serializable claims structure; StandardClaims
// mirrors the RFC 7519 registered fields and validates its temporal claims
// during Parse. The auth module issues and resolves tokens through this
// package.
//
// Usage:
//
//	svc, err := jwt.NewFromString(cfg.SigningKey)
//	if err != nil {
//		return err
//	}
//
//	token, err := svc.Generate(jwt.StandardClaims{
//		Subject:   userID,
//		ExpiresAt: time.Now().Add(30 * 24 * time.Hour).Unix(),
//	})
//
//	var claims jwt.StandardClaims
//	if err := svc.Parse(token, &claims); err != nil {
//		return err
//	}
package jwt
