package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/gate"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"

	_ "github.com/aussiebroadwan/gradebook/api/gradebook" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	gate         *gate.Gate
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// Transport decides whether tokens travel in cookies, bodies or both.
	Transport    httpx.Transport
	CookieSecure bool

	AuthService    *service.AuthService
	MFAService     *service.MFAService
	AccountService *service.AccountService
	GradeService   *service.GradeService
	StudentService *service.StudentService
	AuditService   *service.AuditService
}

// NewRouter creates a router. corsOrigins may be empty to disable CORS.
func NewRouter(
	g *gate.Gate,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	corsOrigins []string,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		gate:         g,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Transport:    httpx.TransportAny,
		CookieSecure: true,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	if len(corsOrigins) > 0 {
		r.middlewares = append(r.middlewares, httpx.CORS(corsOrigins))
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerUsers()
	r.registerGrades()
	r.registerStudents()
	r.registerAudit()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Sistema de Notas Seguro
//	@version		1.0.0
//	@description	Role-based gradebook API. Accounts are admin, profesor or estudiante; every protected route declares the roles it allows.
//	@description
//	@description				Session tokens are HS256 JWTs delivered as an HttpOnly cookie, a bearer token, or both depending on configuration.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/gradebook
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handleCollection registers pattern both with and without a trailing
// slash, so "/notas" and "/notas/" reach the same handler.
func (r *Router) handleCollection(method, path string, h http.Handler) {
	r.Mux.Handle(method+" "+path, h)
	r.Mux.Handle(method+" "+path+"/{$}", h)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:  r.AuthService,
		Gate:         r.gate,
		Transport:    r.Transport,
		CookieSecure: r.CookieSecure,
	}

	// POST /login - looser limit per IP, strict limit per email from any IP
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.ModerateLimit),
			httpx.RateLimitByJSONField(httpx.StrictLimit, "email"),
		),
	)

	// POST /register - public or admin depending on registration mode
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			r.gate.Require(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.gate.Require(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// POST /logout - public, revokes the token when one is presented
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /api/auth/mfa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetup),
			r.gate.Require(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// enable/disable - strict, codes are brute-forceable
	r.Mux.Handle("POST /api/auth/mfa/enable",
		httpx.Chain(http.HandlerFunc(h.HandleEnable),
			r.gate.Require(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/mfa/disable",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			r.gate.Require(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{AccountService: r.AccountService}
	admin := r.gate.Require(domain.RoleAdmin)

	r.handleCollection(http.MethodGet, "/usuarios",
		httpx.Chain(http.HandlerFunc(h.HandleList), admin, httpx.RateLimitByUser(httpx.ModerateLimit)),
	)
	r.Mux.Handle("GET /usuarios/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet), admin, httpx.RateLimitByUser(httpx.ModerateLimit)),
	)
	r.Mux.Handle("DELETE /usuarios/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete), admin, httpx.RateLimitByUser(httpx.ModerateLimit)),
	)
}

func (r *Router) registerGrades() {
	h := &GradesHandler{GradeService: r.GradeService}
	staff := r.gate.Require(domain.RoleAdmin, domain.RoleTeacher)

	r.handleCollection(http.MethodGet, "/notas",
		httpx.Chain(http.HandlerFunc(h.HandleList), staff, httpx.RateLimitByUser(httpx.LenientLimit)),
	)
	r.handleCollection(http.MethodPost, "/notas",
		httpx.Chain(http.HandlerFunc(h.HandleCreate), staff, httpx.RateLimitByUser(httpx.ModerateLimit)),
	)
	r.Mux.Handle("GET /notas/mias",
		httpx.Chain(http.HandlerFunc(h.HandleMine),
			r.gate.Require(domain.RoleStudent),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PUT /notas/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate), staff, httpx.RateLimitByUser(httpx.ModerateLimit)),
	)
	r.Mux.Handle("DELETE /notas/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			r.gate.Require(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerStudents() {
	h := &StudentsHandler{StudentService: r.StudentService}

	r.handleCollection(http.MethodGet, "/api/estudiantes",
		httpx.Chain(h,
			r.gate.Require(domain.RoleAdmin, domain.RoleTeacher),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAudit() {
	h := &AuditHandler{AuditService: r.AuditService}

	r.handleCollection(http.MethodGet, "/auditoria",
		httpx.Chain(h,
			r.gate.Require(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Denylists backed by the database are covered by the store check.
	var denylist Pinger
	if p, ok := r.gate.Denylist.(Pinger); ok {
		denylist = p
	}

	r.Mux.Handle("GET /{$}",
		httpx.Chain(RootHandler(), httpx.RateLimitByIP(httpx.PublicLimit)),
	)
	r.Mux.Handle("GET /health",
		httpx.Chain(HealthHandler(), httpx.RateLimitByIP(httpx.LenientLimit)),
	)

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, denylist),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
