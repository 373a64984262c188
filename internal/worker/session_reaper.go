package worker

import (
	"log"
	"time"

	"github.com/trade-importer/internal/models"
	"github.com/trade-importer/internal/repository"
)

// SessionReaper marks abandoned import sessions failed. The concurrency
// guard already ignores stale sessions on its own time-based check, so the
// reaper is housekeeping: it keeps session history honest for users who
// abandoned an import mid-flight.
type SessionReaper struct {
	sessionRepo *repository.SessionRepository
	staleWindow time.Duration
	interval    time.Duration
	stopChan    chan struct{}
}

// NewSessionReaper creates a new SessionReaper
func NewSessionReaper(sessionRepo *repository.SessionRepository, staleWindow, interval time.Duration) *SessionReaper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if staleWindow <= 0 {
		staleWindow = 2 * time.Minute
	}
	return &SessionReaper{
		sessionRepo: sessionRepo,
		staleWindow: staleWindow,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the reaping loop
func (w *SessionReaper) Start() {
	log.Printf("Session reaper started with interval: %v", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.reapStale()
		case <-w.stopChan:
			log.Println("Session reaper stopped")
			return
		}
	}
}

// Stop stops the reaping loop
func (w *SessionReaper) Stop() {
	close(w.stopChan)
}

// reapStale fails every non-terminal session older than the stale window
func (w *SessionReaper) reapStale() {
	cutoff := time.Now().Add(-w.staleWindow)
	sessions, err := w.sessionRepo.FindStale(cutoff)
	if err != nil {
		log.Printf("Session reaper: failed to list stale sessions: %v", err)
		return
	}

	for _, session := range sessions {
		_, err := w.sessionRepo.ApplyProgress(session.ID, func(sess *models.ImportSession) {
			if sess.Status.IsTerminal() {
				// finished while we were looking
				return
			}
			sess.Status = models.SessionFailed
			sess.Errors = append(sess.Errors, models.RowError{Message: "import abandoned: no progress within stale window"})
			now := time.Now()
			sess.CompletedAt = &now
		})
		if err != nil {
			log.Printf("Session reaper: failed to reap session %d: %v", session.ID, err)
			continue
		}
		log.Printf("Session reaper: marked session %d (%s) failed after inactivity", session.ID, session.Reference)
	}
}
