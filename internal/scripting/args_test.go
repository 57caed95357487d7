package scripting

import (
	"testing"

	"github.com/droverdev/drover/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB creates an in-memory SQLite database with all required tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Client{},
		&models.Site{},
		&models.Agent{},
		&models.CustomField{},
		&models.AgentCustomField{},
		&models.SiteCustomField{},
		&models.ClientCustomField{},
		&models.ScriptSnippet{},
		&models.GlobalKV{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// seedAgent creates a client/site/agent chain and returns the agent with
// Site and Site.Client preloaded, the way the resolver expects it.
func seedAgent(t *testing.T, db *gorm.DB) *models.Agent {
	t.Helper()
	client := models.Client{Name: "Initech"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	site := models.Site{Name: "HQ", ClientID: client.ID}
	if err := db.Create(&site).Error; err != nil {
		t.Fatalf("create site: %v", err)
	}
	agent := models.Agent{
		AgentID:         "agent-1",
		Hostname:        "WS01",
		PublicIP:        "203.0.113.5",
		OperatingSystem: "Windows 10 Pro, 64 bit",
		Version:         "1.5.0",
		MonitoringType:  models.MonitoringWorkstation,
		SiteID:          site.ID,
	}
	if err := db.Create(&agent).Error; err != nil {
		t.Fatalf("create agent: %v", err)
	}
	var out models.Agent
	if err := db.Preload("Site").Preload("Site.Client").First(&out, agent.ID).Error; err != nil {
		t.Fatalf("reload agent: %v", err)
	}
	return &out
}

func resolverFor(t *testing.T, db *gorm.DB, shell string) *Resolver {
	t.Helper()
	return &Resolver{DB: db, Agent: seedAgent(t, db), Shell: shell}
}

func TestParseArgsDirectFields(t *testing.T) {
	r := resolverFor(t, testDB(t), models.ShellPowershell)

	got := r.ParseArgs([]string{
		"-host {{agent.hostname}}",
		"-site {{site.name}}",
		"-client {{client.name}}",
	})
	want := []string{"-host 'WS01'", "-site 'HQ'", "-client 'Initech'"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseArgsEmpty(t *testing.T) {
	r := resolverFor(t, testDB(t), models.ShellPowershell)
	got := r.ParseArgs(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("ParseArgs(nil) = %v, want empty non-nil slice", got)
	}
}

func TestParseArgsGlobalKV(t *testing.T) {
	db := testDB(t)
	if err := db.Create(&models.GlobalKV{Name: "api_url", Value: "https://api.internal"}).Error; err != nil {
		t.Fatalf("create kv: %v", err)
	}
	r := resolverFor(t, db, models.ShellPowershell)

	got := r.ParseArgs([]string{"{{global.api_url}}"})
	if got[0] != "'https://api.internal'" {
		t.Errorf("got %q", got[0])
	}
}

func TestParseArgsUnresolvableBecomesEmpty(t *testing.T) {
	r := resolverFor(t, testDB(t), models.ShellPowershell)
	got := r.ParseArgs([]string{"-x {{agent.nosuchthing}}", "{{notascope}}"})
	if got[0] != "-x " {
		t.Errorf("got %q, want %q", got[0], "-x ")
	}
	if got[1] != "" {
		t.Errorf("got %q, want empty", got[1])
	}
}

func TestParseArgsCustomFieldText(t *testing.T) {
	db := testDB(t)
	r := resolverFor(t, db, models.ShellPowershell)

	field := models.CustomField{Model: "agent", Name: "token", Type: models.FieldTypeText, DefaultString: "none"}
	if err := db.Create(&field).Error; err != nil {
		t.Fatalf("create field: %v", err)
	}
	row := models.AgentCustomField{AgentID: r.Agent.ID, FieldID: field.ID, StringValue: "abc123"}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create value: %v", err)
	}

	got := r.ParseArgs([]string{"{{agent.token}}"})
	if got[0] != "'abc123'" {
		t.Errorf("got %q, want 'abc123'", got[0])
	}
}

func TestParseArgsCustomFieldDefaultFallback(t *testing.T) {
	db := testDB(t)
	r := resolverFor(t, db, models.ShellPowershell)

	field := models.CustomField{Model: "agent", Name: "token", Type: models.FieldTypeText, DefaultString: "fallback"}
	if err := db.Create(&field).Error; err != nil {
		t.Fatalf("create field: %v", err)
	}

	// No value row at all.
	got := r.ParseArgs([]string{"{{agent.token}}"})
	if got[0] != "'fallback'" {
		t.Errorf("no row: got %q, want 'fallback'", got[0])
	}

	// A stored but empty text value also falls back.
	row := models.AgentCustomField{AgentID: r.Agent.ID, FieldID: field.ID, StringValue: ""}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create value: %v", err)
	}
	got = r.ParseArgs([]string{"{{agent.token}}"})
	if got[0] != "'fallback'" {
		t.Errorf("empty row: got %q, want 'fallback'", got[0])
	}
}

func TestParseArgsCheckboxFalseDoesNotFallBack(t *testing.T) {
	db := testDB(t)
	r := resolverFor(t, db, models.ShellPowershell)

	field := models.CustomField{Model: "agent", Name: "enabled", Type: models.FieldTypeCheckbox, DefaultBool: true}
	if err := db.Create(&field).Error; err != nil {
		t.Fatalf("create field: %v", err)
	}
	row := models.AgentCustomField{AgentID: r.Agent.ID, FieldID: field.ID, BoolValue: false}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create value: %v", err)
	}

	got := r.ParseArgs([]string{"{{agent.enabled}}"})
	if got[0] != "$False" {
		t.Errorf("got %q, want $False (stored false must not fall back to default true)", got[0])
	}
}

func TestParseArgsCheckboxShellRendering(t *testing.T) {
	db := testDB(t)
	agent := seedAgent(t, db)

	field := models.CustomField{Model: "agent", Name: "enabled", Type: models.FieldTypeCheckbox}
	if err := db.Create(&field).Error; err != nil {
		t.Fatalf("create field: %v", err)
	}
	row := models.AgentCustomField{AgentID: agent.ID, FieldID: field.ID, BoolValue: true}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create value: %v", err)
	}

	ps := &Resolver{DB: db, Agent: agent, Shell: models.ShellPowershell}
	if got := ps.ParseArgs([]string{"{{agent.enabled}}"})[0]; got != "$True" {
		t.Errorf("powershell true = %q, want $True", got)
	}
	sh := &Resolver{DB: db, Agent: agent, Shell: models.ShellCmd}
	if got := sh.ParseArgs([]string{"{{agent.enabled}}"})[0]; got != "1" {
		t.Errorf("cmd true = %q, want 1 unquoted", got)
	}
}

func TestParseArgsMultipleJoined(t *testing.T) {
	db := testDB(t)
	r := resolverFor(t, db, models.ShellPowershell)

	field := models.CustomField{Model: "site", Name: "vlans", Type: models.FieldTypeMultiple}
	if err := db.Create(&field).Error; err != nil {
		t.Fatalf("create field: %v", err)
	}
	row := models.SiteCustomField{
		SiteID:        r.Agent.SiteID,
		FieldID:       field.ID,
		MultipleValue: models.EncodeMultiple([]string{"10", "20", "30"}),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create value: %v", err)
	}

	got := r.ParseArgs([]string{"{{site.vlans}}"})
	if got[0] != "'10,20,30'" {
		t.Errorf("got %q, want '10,20,30'", got[0])
	}
}

func TestFormatShellBool(t *testing.T) {
	if got := FormatShellBool(true, models.ShellPowershell); got != "$True" {
		t.Errorf("powershell true = %q", got)
	}
	if got := FormatShellBool(false, models.ShellPowershell); got != "$False" {
		t.Errorf("powershell false = %q", got)
	}
	if got := FormatShellBool(true, models.ShellPython); got != "1" {
		t.Errorf("python true = %q", got)
	}
	if got := FormatShellBool(false, models.ShellCmd); got != "0" {
		t.Errorf("cmd false = %q", got)
	}
}
