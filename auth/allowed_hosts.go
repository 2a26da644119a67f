package auth

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/idna"

	"github.com/kbukum/gokiota/errors"
)

// AllowedHostsValidator decides which hosts may receive credentials. An
// empty validator allows every host.
type AllowedHostsValidator struct {
	mu    sync.RWMutex
	hosts map[string]struct{}
}

// NewAllowedHostsValidator creates a validator for hosts. Hosts must not
// carry a scheme.
func NewAllowedHostsValidator(hosts ...string) (*AllowedHostsValidator, error) {
	v := &AllowedHostsValidator{}
	if err := v.SetAllowedHosts(hosts); err != nil {
		return nil, err
	}
	return v, nil
}

func normalizeHost(host string) (string, error) {
	h := strings.TrimSpace(host)
	if strings.Contains(h, "://") {
		return "", errors.Configuration(fmt.Sprintf("allowed host %q must not contain a scheme", host))
	}
	ascii, err := idna.Lookup.ToASCII(h)
	if err != nil {
		return "", errors.Configuration(fmt.Sprintf("allowed host %q is invalid", host)).WithCause(err)
	}
	return strings.ToLower(ascii), nil
}

// SetAllowedHosts replaces the allowed set.
func (v *AllowedHostsValidator) SetAllowedHosts(hosts []string) error {
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if strings.TrimSpace(h) == "" {
			continue
		}
		n, err := normalizeHost(h)
		if err != nil {
			return err
		}
		set[n] = struct{}{}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hosts = set
	return nil
}

// GetAllowedHosts returns the allowed hosts in sorted order.
func (v *AllowedHostsValidator) GetAllowedHosts() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, 0, len(v.hosts))
	for h := range v.hosts {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// IsURIHostValid reports whether uri's host, without port, is allowed.
func (v *AllowedHostsValidator) IsURIHostValid(uri *url.URL) bool {
	if uri == nil {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.hosts) == 0 {
		return true
	}
	host := uri.Hostname()
	if host == "" {
		return false
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	_, ok := v.hosts[strings.ToLower(host)]
	return ok
}
