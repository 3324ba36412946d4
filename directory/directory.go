// Package directory resolves account emails to user identifiers.
//
// Presence is announced over mDNS: each running client registers a service
// instance whose TXT records carry its user id, email and display name.
// Lookup is an explicit context-bound operation, so a directory query is a
// result, a not-found, or a caller-visible timeout, never a hang.
package directory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// DefaultService is the mDNS service name without domain suffix.
	DefaultService = "_cryptext._tcp"
	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."
	// DefaultVersion is the TXT record protocol version.
	DefaultVersion = 1
	// DefaultLookupTimeout bounds a Lookup whose context has no deadline.
	DefaultLookupTimeout = 10 * time.Second
	// DefaultTTL is the intended mDNS record TTL in seconds.
	DefaultTTL = 120
)

// ErrNotFound indicates no announced user matched the email before the
// lookup window closed.
var ErrNotFound = errors.New("directory: no user for email")

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (*zeroconf.Server, error)
type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Config controls directory announcement and lookup behavior.
type Config struct {
	Service       string
	Domain        string
	Version       int
	LookupTimeout time.Duration
	TTL           uint32

	SelfUserID  string
	Email       string
	DisplayName string
	Port        int

	registerFn registerFunc
	browseFn   browseFunc
}

func (c Config) withDefaults() Config {
	out := c
	if out.Service == "" {
		out.Service = DefaultService
	}
	if out.Domain == "" {
		out.Domain = DefaultDomain
	}
	if out.Version == 0 {
		out.Version = DefaultVersion
	}
	if out.LookupTimeout <= 0 {
		out.LookupTimeout = DefaultLookupTimeout
	}
	if out.TTL == 0 {
		out.TTL = DefaultTTL
	}
	if out.registerFn == nil {
		out.registerFn = zeroconf.Register
	}
	return out
}

func (c Config) validateForAnnounce() error {
	if strings.TrimSpace(c.SelfUserID) == "" {
		return errors.New("self user ID is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		return errors.New("email is required")
	}
	if c.Port <= 0 {
		return errors.New("announce port must be > 0")
	}
	return nil
}

// Announcer advertises the local account's presence via mDNS.
type Announcer struct {
	server *zeroconf.Server
}

// StartAnnouncer registers the local account in the directory.
func StartAnnouncer(config Config) (*Announcer, error) {
	cfg := config.withDefaults()
	if err := cfg.validateForAnnounce(); err != nil {
		return nil, err
	}

	instance := cfg.DisplayName
	if strings.TrimSpace(instance) == "" {
		instance = cfg.SelfUserID
	}

	txt := []string{
		"user_id=" + cfg.SelfUserID,
		"email=" + normalizeEmail(cfg.Email),
		"name=" + instance,
		"version=" + strconv.Itoa(cfg.Version),
	}

	server, err := cfg.registerFn(instance, cfg.Service, cfg.Domain, cfg.Port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("register directory service: %w", err)
	}

	return &Announcer{server: server}, nil
}

// Stop withdraws the announcement.
func (a *Announcer) Stop() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}

// AllocatePort reserves an ephemeral TCP port to advertise when the
// install runs in automatic port mode.
func AllocatePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("allocate directory port: %w", err)
	}
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, errors.New("allocate directory port: unexpected address type")
	}
	return addr.Port, nil
}

// Resolver looks up announced users by email.
type Resolver struct {
	cfg    Config
	browse browseFunc
}

// NewResolver creates a resolver with config defaults applied.
func NewResolver(config Config) (*Resolver, error) {
	cfg := config.withDefaults()

	browse := cfg.browseFn
	if browse == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, err
		}
		browse = resolver.Browse
	}

	return &Resolver{cfg: cfg, browse: browse}, nil
}

// Lookup resolves an email to a user identifier.
//
// The operation is bounded: the caller's context deadline applies, and a
// context without a deadline gets the configured lookup timeout. When the
// window closes without a match the result is ErrNotFound; a canceled
// caller context is reported as the context error.
func (r *Resolver) Lookup(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", errors.New("email is required")
	}

	var (
		lookupCtx context.Context
		cancel    context.CancelFunc
	)
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		lookupCtx, cancel = context.WithCancel(ctx)
	} else {
		lookupCtx, cancel = context.WithTimeout(ctx, r.cfg.LookupTimeout)
	}
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 32)
	browseDone := make(chan error, 1)
	go func() {
		browseDone <- r.browse(lookupCtx, r.cfg.Service, r.cfg.Domain, entries)
	}()

	// zeroconf's Browse returns once its mainloop is running; entries keep
	// arriving on the channel until the context ends, when zeroconf closes
	// it. A nil browse return therefore opens the window, it does not
	// close it — only the context does.
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			if entry == nil {
				continue
			}
			if userID, ok := matchEntry(entry, email); ok {
				cancel()
				return userID, nil
			}
		case err := <-browseDone:
			browseDone = nil
			if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				return "", fmt.Errorf("browse directory: %w", err)
			}
		case <-lookupCtx.Done():
			if userID, ok := drainMatch(entries, email); ok {
				return userID, nil
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", ErrNotFound
		}
	}
}

// drainMatch consumes entries already buffered when the lookup window
// closed. It never blocks: a closed or empty channel ends the drain.
func drainMatch(entries <-chan *zeroconf.ServiceEntry, email string) (string, bool) {
	if entries == nil {
		return "", false
	}
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return "", false
			}
			if userID, ok := matchEntry(entry, email); ok {
				return userID, true
			}
		default:
			return "", false
		}
	}
}

// Service couples the announcer and resolver of one running client.
type Service struct {
	Announcer *Announcer
	Resolver  *Resolver
}

// Start announces the local account and returns a ready resolver.
func Start(config Config) (*Service, error) {
	cfg := config.withDefaults()

	announcer, err := StartAnnouncer(cfg)
	if err != nil {
		return nil, err
	}

	resolver, err := NewResolver(cfg)
	if err != nil {
		announcer.Stop()
		return nil, err
	}

	return &Service{Announcer: announcer, Resolver: resolver}, nil
}

// Stop withdraws the announcement. The resolver needs no shutdown.
func (s *Service) Stop() {
	if s == nil {
		return
	}
	s.Announcer.Stop()
}

func matchEntry(entry *zeroconf.ServiceEntry, email string) (string, bool) {
	if entry == nil {
		return "", false
	}

	txt := txtToMap(entry.Text)
	if normalizeEmail(txt["email"]) != email {
		return "", false
	}

	userID := strings.TrimSpace(txt["user_id"])
	if userID == "" {
		return "", false
	}
	return userID, true
}

func txtToMap(text []string) map[string]string {
	out := make(map[string]string, len(text))
	for _, entry := range text {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(parts[1])
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
