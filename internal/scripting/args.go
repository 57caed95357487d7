// Package scripting resolves {{model.property}} placeholders in script
// arguments and {{snippet}} placeholders in script bodies at dispatch time.
package scripting

import (
	"log"
	"regexp"
	"strings"

	"github.com/droverdev/drover/internal/models"
	"gorm.io/gorm"
)

var argPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Resolver resolves placeholder expressions against one agent's
// agent/site/client/global graph. The agent must have Site and
// Site.Client preloaded.
type Resolver struct {
	DB    *gorm.DB
	Agent *models.Agent
	Shell string
}

// ParseArgs replaces every {{scope.property}} placeholder in args. An
// expression that cannot be resolved becomes the empty string; resolution
// problems are logged, never fatal, so a bad template can't block a run.
func (r *Resolver) ParseArgs(args []string) []string {
	if len(args) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(args))
	for _, arg := range args {
		out = append(out, argPattern.ReplaceAllStringFunc(arg, func(m string) string {
			expr := strings.TrimSpace(m[2 : len(m)-2])
			return r.resolve(expr)
		}))
	}
	return out
}

// resolve evaluates one scope.property expression to its final shell-ready
// text, quoting included.
func (r *Resolver) resolve(expr string) string {
	scope, prop, ok := strings.Cut(expr, ".")
	if !ok {
		return ""
	}

	if scope == "global" {
		var kv models.GlobalKV
		if err := r.DB.Where("name = ?", prop).First(&kv).Error; err != nil {
			log.Printf("scripting: %s: no key store entry for %q", r.Agent.Hostname, expr)
			return ""
		}
		return quote(kv.Value)
	}

	if v, ok := r.directField(scope, prop); ok {
		return quote(v)
	}

	v, ok := r.customField(scope, prop)
	if !ok {
		log.Printf("scripting: %s: cannot resolve %q, not a field or custom field", r.Agent.Hostname, expr)
		return ""
	}
	return r.format(v)
}

// directField looks up built-in model properties.
func (r *Resolver) directField(scope, prop string) (string, bool) {
	switch scope {
	case "agent":
		switch prop {
		case "hostname":
			return r.Agent.Hostname, true
		case "agent_id":
			return r.Agent.AgentID, true
		case "public_ip":
			return r.Agent.PublicIP, true
		case "operating_system":
			return r.Agent.OperatingSystem, true
		case "version":
			return r.Agent.Version, true
		case "monitoring_type":
			return r.Agent.MonitoringType, true
		case "description":
			return r.Agent.Description, true
		}
	case "site":
		if prop == "name" {
			return r.Agent.Site.Name, true
		}
	case "client":
		if prop == "name" {
			return r.Agent.Site.Client.Name, true
		}
	}
	return "", false
}

// customField resolves a custom-field value for the scoped entity,
// falling back to the field default when no row is set or the stored
// text value is empty.
func (r *Resolver) customField(scope, prop string) (any, bool) {
	var field models.CustomField
	if err := r.DB.Where("model = ? AND name = ?", scope, prop).First(&field).Error; err != nil {
		return nil, false
	}

	var (
		row models.FieldValue
		err error
	)
	switch scope {
	case "agent":
		var v models.AgentCustomField
		err = r.DB.Where("agent_id = ? AND field_id = ?", r.Agent.ID, field.ID).First(&v).Error
		row = v
	case "site":
		var v models.SiteCustomField
		err = r.DB.Where("site_id = ? AND field_id = ?", r.Agent.SiteID, field.ID).First(&v).Error
		row = v
	case "client":
		var v models.ClientCustomField
		err = r.DB.Where("client_id = ? AND field_id = ?", r.Agent.Site.ClientID, field.ID).First(&v).Error
		row = v
	default:
		return nil, false
	}

	if err != nil {
		return field.DefaultValue(), true
	}

	val := row.Value(field.Type)
	// A stored but empty text value falls back to the default; checkbox
	// false is a legitimate value and must not.
	if field.Type != models.FieldTypeCheckbox && isEmpty(val) {
		return field.DefaultValue(), true
	}
	return val, true
}

// format renders a resolved custom-field value per shell rules.
func (r *Resolver) format(v any) string {
	switch t := v.(type) {
	case bool:
		return FormatShellBool(t, r.Shell)
	case []string:
		return quote(strings.Join(t, ","))
	case string:
		return quote(t)
	default:
		return ""
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	}
	return false
}

func quote(s string) string {
	return "'" + s + "'"
}

// FormatShellBool renders a boolean the way the target shell expects it.
func FormatShellBool(v bool, shell string) string {
	if shell == models.ShellPowershell {
		if v {
			return "$True"
		}
		return "$False"
	}
	if v {
		return "1"
	}
	return "0"
}
