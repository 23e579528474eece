package httpserver

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iedon/peerapi/config"
	"github.com/iedon/peerapi/logger"
	"github.com/iedon/peerapi/peering"
)

type contextKey string

const callerASNKey contextKey = "callerASN"

// CallerASN returns the ASN the request authenticated as
func CallerASN(r *http.Request) (uint, bool) {
	asn, ok := r.Context().Value(callerASNKey).(uint)
	return asn, ok
}

const bearerScheme = "Bearer\x20"

// JWTAuthMiddleware verifies the frontend bearer token and stores the
// authenticated ASN on the request context. /list/* and /agent/* have
// their own access rules and pass through.
func JWTAuthMiddleware(cfg *config.Config, log *logger.Logger) func(http.Handler) http.Handler {
	authLog := log.Named("auth")
	secret := []byte(cfg.Auth.JWTSecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			asn, ok := verifyToken(r, secret, authLog)
			if !ok {
				SendResponse(w, peering.CodeUnauthorized, nil)
				return
			}

			ctx := context.WithValue(r.Context(), callerASNKey, asn)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isPublicPath reports whether a path skips frontend token verification.
// Agent endpoints carry their own bearer scheme.
func isPublicPath(path string) bool {
	return strings.HasPrefix(path, "/list/") || strings.HasPrefix(path, "/agent/")
}

func verifyToken(r *http.Request, secret []byte, authLog *logger.Logger) (uint, bool) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, bearerScheme) {
		return 0, false
	}
	raw := header[len(bearerScheme):]
	if raw == "" {
		return 0, false
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		authLog.Debug("Token verification failed: %v", err)
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	return asnClaim(claims["asn"])
}

// asnClaim accepts the asn claim as a JSON number or a decimal string
func asnClaim(v any) (uint, bool) {
	switch asn := v.(type) {
	case float64:
		if asn < peering.ASNMin || asn > peering.ASNMax || asn != float64(uint(asn)) {
			return 0, false
		}
		return uint(asn), true
	case string:
		parsed, err := strconv.ParseUint(asn, 10, 32)
		if err != nil {
			return 0, false
		}
		return uint(parsed), true
	default:
		return 0, false
	}
}

// BodyLimitMiddleware limits request body size
func BodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TrustedProxyMiddleware validates IPs and handles trusted proxies
func TrustedProxyMiddleware(trustedProxies []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getRealIP(r, trustedProxies)

			if clientIP != "" {
				parsedIP := net.ParseIP(clientIP)
				if parsedIP == nil || parsedIP.IsUnspecified() {
					SendResponse(w, peering.CodeBadRequest, nil)
					return
				}
			}

			// Store the real IP in request header for later use
			r.Header.Set("X-Real-IP", clientIP)
			next.ServeHTTP(w, r)
		})
	}
}

// getRealIP gets real IP address considering trusted proxies
func getRealIP(r *http.Request, trustedProxies []string) string {
	remoteAddr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}

	if isTrustedProxy(remoteAddr, trustedProxies) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			ips := strings.Split(forwarded, ",")
			if len(ips) > 0 {
				return strings.TrimSpace(ips[0])
			}
		}

		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
	}

	return remoteAddr
}

// isTrustedProxy checks if IP is in trusted proxy list
func isTrustedProxy(ip string, trustedProxies []string) bool {
	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, trusted := range trustedProxies {
		if strings.Contains(trusted, "/") {
			// CIDR notation
			_, network, err := net.ParseCIDR(trusted)
			if err == nil && network.Contains(clientIP) {
				return true
			}
		} else {
			if ip == trusted {
				return true
			}
		}
	}

	return false
}

// ServerHeaderMiddleware adds server header
func ServerHeaderMiddleware(serverHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Server", serverHeader)
			next.ServeHTTP(w, r)
		})
	}
}

// DebugLoggingMiddleware logs requests in debug mode
func DebugLoggingMiddleware(log *logger.Logger, debug bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if debug {
				clientIP := r.Header.Get("X-Real-IP")
				if clientIP == "" {
					clientIP = r.RemoteAddr
				}
				log.Debug("%s %s %s from %s", r.Method, r.URL.Path, r.Proto, clientIP)
			}
			next.ServeHTTP(w, r)
		})
	}
}
