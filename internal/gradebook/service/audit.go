package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"
)

// Audited actions.
const (
	ActionLogin         = "Inicio de sesión"
	ActionLogout        = "Cierre de sesión"
	ActionRegister      = "Registro de usuario"
	ActionGradeCreate   = "Creación de nota"
	ActionGradeUpdate   = "Actualización de nota"
	ActionGradeDelete   = "Eliminación de nota"
	ActionAccountDelete = "Eliminación de usuario"
	ActionMFAEnable     = "Activación de MFA"
	ActionMFADisable    = "Desactivación de MFA"
)

const (
	defaultAuditBuffer = 256
	defaultAuditLimit  = 500
	auditWriteTimeout  = 5 * time.Second
)

// Auditor records an action after it succeeded. It never fails the caller.
type Auditor interface {
	Record(ctx context.Context, actorID int64, action, ip string)
}

// AuditService is the audit sink. Record enqueues and returns at once; one
// background worker writes entries to the store. A full queue drops the
// entry with a warning, and write failures are only logged.
type AuditService struct {
	Store  store.Store
	Logger *slog.Logger

	queue  chan domain.AuditEntry
	stopCh chan struct{}
	doneCh chan struct{}
	now    func() time.Time

	// mu orders enqueues before the close of stopCh, so the writer's final
	// drain sees every accepted entry.
	mu      sync.RWMutex
	stopped bool
}

// NewAuditService creates an audit sink with room for buffer pending
// entries. A non-positive buffer uses 256.
func NewAuditService(s store.Store, logger *slog.Logger, buffer int) *AuditService {
	if buffer <= 0 {
		buffer = defaultAuditBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditService{
		Store:  s,
		Logger: logger,
		queue:  make(chan domain.AuditEntry, buffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		now:    time.Now,
	}
}

// Start runs the writer goroutine. Call Stop to drain and shut it down.
func (s *AuditService) Start() {
	go s.run()
	s.Logger.Info("audit writer started", "buffer", cap(s.queue))
}

// Stop writes whatever is queued and waits for the writer to exit.
func (s *AuditService) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	s.mu.Unlock()

	<-s.doneCh
	s.Logger.Info("audit writer stopped")
}

// Record queues an entry. It does not block.
func (s *AuditService) Record(ctx context.Context, actorID int64, action, ip string) {
	entry := domain.AuditEntry{AccountID: actorID, Action: action, IP: ip, At: s.now()}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		slogx.FromContext(ctx).Warn("audit writer stopped, entry dropped", "action", action, "user_id", actorID)
		return
	}

	select {
	case s.queue <- entry:
	default:
		slogx.FromContext(ctx).Warn("audit queue full, entry dropped", "action", action, "user_id", actorID)
	}
}

// List returns up to limit entries, newest first. A non-positive limit
// uses 500.
func (s *AuditService) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	entries, err := s.Store.Audit().List(ctx, limit)
	if err != nil {
		return nil, fromStore(err, "audit log")
	}
	return entries, nil
}

func (s *AuditService) run() {
	defer close(s.doneCh)

	for {
		select {
		case e := <-s.queue:
			s.write(e)
		case <-s.stopCh:
			for {
				select {
				case e := <-s.queue:
					s.write(e)
				default:
					return
				}
			}
		}
	}
}

func (s *AuditService) write(e domain.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := s.Store.Audit().Append(ctx, e); err != nil {
		s.Logger.Error("failed to write audit entry", "action", e.Action, "user_id", e.AccountID, "error", err)
	}
}

// NopAuditor discards every entry.
type NopAuditor struct{}

func (NopAuditor) Record(context.Context, int64, string, string) {}
