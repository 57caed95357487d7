package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/droverdev/drover/internal/config"
	"github.com/droverdev/drover/internal/models"
	"github.com/droverdev/drover/internal/observability"
	"gorm.io/gorm"
)

// maxPayload is the bus server's message size cap (64 MiB), large enough
// for event-log and process dumps.
const maxPayload = 67108864

// Reconciler rewrites the bus server's authorization config from the
// agents table and signals the server to reload. Reconcile is idempotent:
// the principal list is always re-derived in full, so running it after
// every uninstall (or install) converges to the same config.
type Reconciler struct {
	DB  *gorm.DB
	Cfg config.BusConfig
}

type busUser struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type busConfig struct {
	TLS struct {
		CertFile string `json:"cert_file"`
		KeyFile  string `json:"key_file"`
	} `json:"tls"`
	Authorization struct {
		Users []busUser `json:"users"`
	} `json:"authorization"`
	MaxPayload int `json:"max_payload"`
}

// Reconcile re-derives the authorized principal list, rewrites the server
// config and signals a reload. An agent without an auth key is logged and
// left out; it cannot authenticate until reinstalled.
func (r *Reconciler) Reconcile() error {
	var agents []models.Agent
	if err := r.DB.Select("id", "agent_id", "hostname", "auth_key").Find(&agents).Error; err != nil {
		return fmt.Errorf("transport: load agents: %w", err)
	}

	users := []busUser{{User: r.Cfg.ServerUser, Password: r.Cfg.ServerPass}}
	for _, a := range agents {
		if a.AuthKey == "" {
			log.Printf("transport: %s has no auth key, excluded from bus config", a.Hostname)
			continue
		}
		users = append(users, busUser{User: a.AgentID, Password: a.AuthKey})
	}

	var conf busConfig
	conf.TLS.CertFile = r.Cfg.CertFile
	conf.TLS.KeyFile = r.Cfg.KeyFile
	conf.Authorization.Users = users
	conf.MaxPayload = maxPayload

	data, err := json.Marshal(conf)
	if err != nil {
		return fmt.Errorf("transport: marshal bus config: %w", err)
	}
	if err := os.WriteFile(r.Cfg.ConfPath, data, 0600); err != nil {
		return fmt.Errorf("transport: write %s: %w", r.Cfg.ConfPath, err)
	}

	if r.Cfg.ServerBin != "" {
		cmd := exec.Command(r.Cfg.ServerBin, "-signal", "reload")
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("transport: signal reload: %w: %s", err, out)
		}
	}

	observability.BusReloads.Inc()
	return nil
}
