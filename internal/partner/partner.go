package partner

import (
	"net/http"
	"strings"
)

// RawFields is the partner wire format flattened into field name -> raw
// string value. No validation happens at this level.
type RawFields map[string]string

// Get returns the raw value for key, "" when absent.
func (f RawFields) Get(key string) string {
	return f[key]
}

// Has reports whether key was present in the request, even if empty.
func (f RawFields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Partner parses a partner-specific request into RawFields. One
// implementation per partner, selected by the registry; wire-format quirks
// (query string vs JSON body, field naming) stay inside the adapter.
type Partner interface {
	ID() string
	Parse(r *http.Request, body []byte) (RawFields, error)
}

// Registry maps partner ids to their adapters.
type Registry struct {
	partners map[string]Partner
}

func NewRegistry() *Registry {
	return &Registry{partners: make(map[string]Partner)}
}

func (reg *Registry) Register(p Partner) {
	reg.partners[p.ID()] = p
}

func (reg *Registry) Get(id string) (Partner, bool) {
	p, ok := reg.partners[id]
	return p, ok
}

// Determine picks the partner for a request. Пока единственный партнер —
// epn_bz; при появлении новых сюда добавится выбор по маршруту/конфигу.
func (reg *Registry) Determine(r *http.Request) string {
	return "epn_bz"
}

// ClientIP extracts the caller address, honoring X-Forwarded-For set by the
// reverse proxy in front of the service.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		return "unknown"
	}
	return host
}

// RequestMeta carries transport-level facts about the webhook request that
// are persisted alongside the event.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Method    string
}

func NewRequestMeta(r *http.Request) RequestMeta {
	return RequestMeta{
		ClientIP:  ClientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
		Method:    r.Method,
	}
}
