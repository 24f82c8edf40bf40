package credentials

import (
	"os"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/neilberkman/wbaccel/internal/core/models"
)

// Cache is the fast, process-scoped tier of the credential store
type Cache interface {
	Get() models.SessionRecord
	Put(models.SessionRecord) error
	Reset() error
}

// envPrefix namespaces the process cache in the environment, apart from
// the WBACCEL_* settings the user exports
const envPrefix = "wbaccel_session"

// Environment keys mirroring the durable record, in file order
const (
	EnvAuthToken   = "WBACCEL_SESSION_AUTH_TOKEN"
	EnvSiteID      = "WBACCEL_SESSION_SITE_ID"
	EnvUserID      = "WBACCEL_SESSION_USER_ID"
	EnvServerURL   = "WBACCEL_SESSION_SERVER_URL"
	EnvTLSCertPath = "WBACCEL_SESSION_SSL_CERT_PEM"
)

type envRecord struct {
	AuthToken   string `envconfig:"AUTH_TOKEN"`
	SiteID      string `envconfig:"SITE_ID"`
	UserID      string `envconfig:"USER_ID"`
	ServerURL   string `envconfig:"SERVER_URL"`
	TLSCertPath string `envconfig:"SSL_CERT_PEM"`
}

// EnvCache keeps the session in the process environment, so child
// processes and repeated checks within one command see it without disk I/O.
type EnvCache struct{}

func (EnvCache) Get() models.SessionRecord {
	var rec envRecord
	if err := envconfig.Process(envPrefix, &rec); err != nil {
		return models.SessionRecord{}
	}
	return models.SessionRecord{
		AuthToken:   rec.AuthToken,
		SiteID:      rec.SiteID,
		UserID:      rec.UserID,
		ServerURL:   rec.ServerURL,
		TLSCertPath: rec.TLSCertPath,
	}
}

func (EnvCache) Put(r models.SessionRecord) error {
	for key, value := range map[string]string{
		EnvAuthToken:   r.AuthToken,
		EnvSiteID:      r.SiteID,
		EnvUserID:      r.UserID,
		EnvServerURL:   r.ServerURL,
		EnvTLSCertPath: r.TLSCertPath,
	} {
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (EnvCache) Reset() error {
	for _, key := range []string{EnvAuthToken, EnvSiteID, EnvUserID, EnvServerURL, EnvTLSCertPath} {
		if err := os.Unsetenv(key); err != nil {
			return err
		}
	}
	return nil
}

// MemoryCache is a Cache confined to one value, used when the environment
// should not be touched (tests, the long-running MCP server).
type MemoryCache struct {
	mu     sync.Mutex
	record models.SessionRecord
}

func (m *MemoryCache) Get() models.SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record
}

func (m *MemoryCache) Put(r models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = r
	return nil
}

func (m *MemoryCache) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = models.SessionRecord{}
	return nil
}
