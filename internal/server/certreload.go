package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	apperrors "resumatch/internal/errors"
	"resumatch/internal/observability"
)

// CertReloader keeps the server certificate fresh by watching the cert
// and key files and reloading the pair on change. Events are debounced
// because certificate rotation writes both files.
type CertReloader struct {
	mu sync.RWMutex

	certFile string
	keyFile  string
	cert     *tls.Certificate

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan chan struct{}
	running  bool

	reloadCount  int
	failureCount int
	lastReload   time.Time
	lastError    string

	metrics *observability.Metrics
	logger  *apperrors.Logger
}

// NewCertReloader loads the initial certificate pair. Watching does not
// begin until Start is called.
func NewCertReloader(certFile, keyFile string, debounceDelay time.Duration, metrics *observability.Metrics, logger *apperrors.Logger) (*CertReloader, error) {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server cert/key: %w", err)
	}

	return &CertReloader{
		certFile:      certFile,
		keyFile:       keyFile,
		cert:          &cert,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		metrics:       metrics,
		logger:        logger,
	}, nil
}

// Start begins watching the certificate files for changes.
func (cr *CertReloader) Start() error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.running {
		return fmt.Errorf("certificate reloader is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	cr.fsWatcher = watcher

	for _, file := range []string{cr.certFile, cr.keyFile} {
		if err := cr.watchFile(file); err != nil {
			if closeErr := watcher.Close(); closeErr != nil {
				cr.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
			}
			return err
		}
	}

	cr.running = true
	go cr.watchLoop()

	cr.logger.Info("Certificate file watcher started",
		"cert_file", cr.certFile,
		"key_file", cr.keyFile,
		"debounce_delay", cr.debounceDelay)
	return nil
}

// watchFile adds a file to the watcher, falling back to its directory
// when the file does not exist yet.
func (cr *CertReloader) watchFile(file string) error {
	if err := cr.fsWatcher.Add(file); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to watch file %s: %w", file, err)
		}
		dir := filepath.Dir(file)
		if err := cr.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		cr.logger.Info("Watching directory for certificate file", "file", file, "directory", dir)
	}
	return nil
}

func (cr *CertReloader) watchLoop() {
	for {
		select {
		case event, ok := <-cr.fsWatcher.Events:
			if !ok {
				return
			}
			if cr.relevant(event) {
				cr.scheduleReload()
			}
		case err, ok := <-cr.fsWatcher.Errors:
			if !ok {
				return
			}
			cr.logger.LogError(err, "Certificate file watcher error")
		case <-cr.stopChan:
			return
		}
	}
}

// relevant reports whether the event touches one of the watched files.
// Renames and removals matter: rotation tools replace files atomically.
func (cr *CertReloader) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == filepath.Clean(cr.certFile) || name == filepath.Clean(cr.keyFile)
}

// scheduleReload resets the debounce timer so a burst of events causes
// a single reload.
func (cr *CertReloader) scheduleReload() {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.debounceTimer != nil {
		cr.debounceTimer.Stop()
	}
	cr.debounceTimer = time.AfterFunc(cr.debounceDelay, cr.reload)
}

// reload loads the certificate pair and swaps it in on success. The
// previous pair stays active on failure.
func (cr *CertReloader) reload() {
	cert, err := tls.LoadX509KeyPair(cr.certFile, cr.keyFile)

	cr.mu.Lock()
	cr.reloadCount++
	cr.lastReload = time.Now()
	if err != nil {
		cr.failureCount++
		cr.lastError = err.Error()
	} else {
		cr.cert = &cert
		cr.lastError = ""
	}
	cr.mu.Unlock()

	if cr.metrics != nil {
		cr.metrics.RecordCertReload(context.Background(), err == nil)
	}
	if err != nil {
		cr.logger.LogError(err, "Failed to reload TLS certificates, keeping previous pair")
		return
	}
	cr.logger.Info("TLS certificates reloaded", "cert_file", cr.certFile)
}

// GetCertificate is wired into tls.Config.GetCertificate.
func (cr *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.cert == nil {
		return nil, fmt.Errorf("no certificate loaded")
	}
	return cr.cert, nil
}

// Health reports reload state and time to expiry for the health
// endpoint. Certificates within 24 hours of expiry are unhealthy.
func (cr *CertReloader) Health() map[string]any {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	status := map[string]any{
		"healthy":       true,
		"auto_reload":   true,
		"reload_count":  cr.reloadCount,
		"failure_count": cr.failureCount,
	}
	if !cr.lastReload.IsZero() {
		status["last_reload"] = cr.lastReload.Format(time.RFC3339)
	}
	if cr.lastError != "" {
		status["last_error"] = cr.lastError
	}

	expiry, err := cr.expiry()
	if err != nil {
		status["healthy"] = false
		status["error"] = err.Error()
		return status
	}

	timeToExpiry := time.Until(expiry)
	status["time_to_expiry_hours"] = int(timeToExpiry.Hours())
	switch {
	case timeToExpiry <= 0:
		status["healthy"] = false
		status["status"] = "expired"
	case timeToExpiry <= 24*time.Hour:
		status["healthy"] = false
		status["status"] = "critical"
	case timeToExpiry <= 7*24*time.Hour:
		status["status"] = "warning"
	default:
		status["status"] = "ok"
	}
	return status
}

// expiry parses the leaf certificate. Callers must hold at least a
// read lock.
func (cr *CertReloader) expiry() (time.Time, error) {
	if cr.cert == nil || len(cr.cert.Certificate) == 0 {
		return time.Time{}, fmt.Errorf("no certificate loaded")
	}
	leaf := cr.cert.Leaf
	if leaf == nil {
		parsed, err := x509.ParseCertificate(cr.cert.Certificate[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse certificate: %w", err)
		}
		leaf = parsed
	}
	return leaf.NotAfter, nil
}

// Stop stops the file watcher.
func (cr *CertReloader) Stop() error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if !cr.running {
		return nil
	}

	close(cr.stopChan)
	if cr.debounceTimer != nil {
		cr.debounceTimer.Stop()
	}
	if err := cr.fsWatcher.Close(); err != nil {
		cr.logger.LogError(err, "Failed to close file system watcher")
		return err
	}

	cr.running = false
	cr.logger.Info("Certificate file watcher stopped")
	return nil
}
