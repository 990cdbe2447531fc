package gradesdk

import "time"

// ============================================================================
// Health
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each dependency checked by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Denylist string `json:"denylist,omitempty"`
}

// ServiceStatus is the body of GET /health.
type ServiceStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Errors
// ============================================================================

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse is returned with 400 when input fields are rejected.
type ValidationErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ============================================================================
// Authentication
// ============================================================================

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp,omitempty"`
}

// PublicUser is the caller-visible part of an account.
type PublicUser struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Rol    string `json:"rol"`
	Nombre string `json:"nombre"`
}

// LoginResponse is returned by a successful login. The token fields are
// only present when the server returns tokens in the body.
type LoginResponse struct {
	Message     string     `json:"message"`
	User        PublicUser `json:"user"`
	AccessToken string     `json:"access_token,omitempty"`
	TokenType   string     `json:"token_type,omitempty"`
	ExpiresIn   int        `json:"expires_in"`
}

// RefreshResponse is returned by POST /api/auth/refresh.
type RefreshResponse struct {
	AccessTokenRefreshed bool   `json:"access_token_refreshed"`
	AccessToken          string `json:"access_token,omitempty"`
	TokenType            string `json:"token_type,omitempty"`
	ExpiresIn            int    `json:"expires_in"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Rol      string `json:"rol"`
	Nombre   string `json:"nombre"`
}

// MFASetupResponse carries a freshly generated TOTP secret.
type MFASetupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}

// MFACodeRequest carries a TOTP code for enabling or disabling MFA.
type MFACodeRequest struct {
	Code string `json:"code"`
}

// ============================================================================
// Accounts
// ============================================================================

// Account is the admin view of an account.
type Account struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Rol           string    `json:"rol"`
	Nombre        string    `json:"nombre"`
	MFAHabilitado bool      `json:"mfa_habilitado"`
	CreadoEn      time.Time `json:"creado_en"`
}

// ============================================================================
// Grades
// ============================================================================

// GradeRequest is the body of POST /notas and PUT /notas/{id}. Every field
// is required; Calificacion is a pointer so an absent score is not read as 0.
type GradeRequest struct {
	EstudianteID int64    `json:"estudiante_id" validate:"required"`
	Asignatura   string   `json:"asignatura" validate:"required"`
	Calificacion *float64 `json:"calificacion" validate:"required"`
	Periodo      string   `json:"periodo" validate:"required"`
}

// Score returns a pointer to v for GradeRequest.Calificacion.
func Score(v float64) *float64 {
	return &v
}

// Grade is a recorded score.
type Grade struct {
	ID               int64     `json:"id"`
	EstudianteID     int64     `json:"estudiante_id"`
	EstudianteNombre string    `json:"estudiante_nombre"`
	Asignatura       string    `json:"asignatura"`
	Calificacion     float64   `json:"calificacion"`
	Periodo          string    `json:"periodo"`
	CreadoPor        *int64    `json:"creado_por"`
	CreadoPorNombre  string    `json:"creado_por_nombre,omitempty"`
	CreadoEn         time.Time `json:"creado_en"`
}

// ============================================================================
// Students
// ============================================================================

// StudentSummary is a student with their grade average.
type StudentSummary struct {
	ID               int64   `json:"id"`
	CodigoEstudiante string  `json:"codigo_estudiante"`
	Nombre           string  `json:"nombre"`
	Email            string  `json:"email"`
	Curso            string  `json:"curso"`
	Promedio         float64 `json:"promedio"`
	Estado           string  `json:"estado"`
}

// ============================================================================
// Audit
// ============================================================================

// AuditEntry is one audit log line. Usuario is empty once the acting
// account has been deleted.
type AuditEntry struct {
	ID        int64     `json:"id"`
	UsuarioID int64     `json:"usuario_id"`
	Usuario   string    `json:"usuario"`
	Accion    string    `json:"accion"`
	Fecha     time.Time `json:"fecha"`
	IP        string    `json:"ip"`
}
