package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin access for the storefront frontend.
type CORSConfig struct {
	// AllowOrigins lists exact origins ("https://shop.example") or subdomain
	// patterns ("https://*.shop.example", matching preview deployments).
	// Empty or "*" allows every origin.
	AllowOrigins []string
	// AllowMethods defaults to the methods the API serves.
	AllowMethods []string
	// AllowHeaders is sent on preflights. When empty the requested headers
	// are echoed.
	AllowHeaders []string
	// ExposeHeaders lists response headers readable by frontend scripts,
	// such as the cart session header.
	ExposeHeaders []string
	// AllowCredentials lets the browser send the cart cookie cross-origin.
	// It disables the "*" origin: the request origin is echoed instead.
	AllowCredentials bool
	// MaxAge caches preflights for this many seconds. Zero omits the header.
	MaxAge int
}

var defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}

type corsPolicy struct {
	anyOrigin   bool
	exact       map[string]struct{}
	suffixes    []originPattern
	methods     string
	headers     string
	expose      string
	credentials bool
	maxAge      string
}

// originPattern matches scheme://<sub>.<domain>.
type originPattern struct {
	scheme string
	domain string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		anyOrigin:   len(cfg.AllowOrigins) == 0,
		exact:       make(map[string]struct{}),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowOrigins {
		o = strings.ToLower(strings.TrimSuffix(o, "/"))
		switch scheme, host, _ := strings.Cut(o, "://"); {
		case o == "*":
			p.anyOrigin = true
		case strings.HasPrefix(host, "*."):
			p.suffixes = append(p.suffixes, originPattern{scheme: scheme, domain: host[1:]})
		default:
			p.exact[o] = struct{}{}
		}
	}

	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	p.methods = strings.Join(methods, ", ")
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is rejected.
func (p *corsPolicy) allowOrigin(origin string) string {
	if p.anyOrigin {
		if p.credentials {
			return origin
		}
		return "*"
	}
	lower := strings.ToLower(origin)
	if _, ok := p.exact[lower]; ok {
		return origin
	}
	scheme, host, _ := strings.Cut(lower, "://")
	for _, s := range p.suffixes {
		if scheme == s.scheme && len(host) > len(s.domain) && strings.HasSuffix(host, s.domain) {
			return origin
		}
	}
	return ""
}

// CORS answers preflights and decorates cross-origin responses.
// Preflights from rejected origins get 204 without CORS headers, so the
// browser blocks the actual request.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			varyOrigin := !p.anyOrigin || p.credentials
			if varyOrigin {
				h.Add("Vary", "Origin")
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allow := p.allowOrigin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allow != "" {
					p.writePreflight(h, allow, r.Header.Get("Access-Control-Request-Headers"))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
				if p.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if p.expose != "" {
					h.Set("Access-Control-Expose-Headers", p.expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (p *corsPolicy) writePreflight(h http.Header, allow, requested string) {
	h.Set("Access-Control-Allow-Origin", allow)
	h.Set("Access-Control-Allow-Methods", p.methods)
	switch {
	case p.headers != "":
		h.Set("Access-Control-Allow-Headers", p.headers)
	case requested != "":
		h.Set("Access-Control-Allow-Headers", requested)
	}
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
}
