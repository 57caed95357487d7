package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/droverdev/drover/internal/config"
	"github.com/droverdev/drover/internal/db"
	"github.com/droverdev/drover/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "API key management commands",
	}

	cmd.AddCommand(newTokenCreateCmd())
	return cmd
}

func newTokenCreateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		roleName   string
		superuser  bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		Long: `Creates an API key bound to a role. With --superuser a superuser role
is created (or reused) automatically; otherwise --role names an existing role.
Prompts for a key value; leave blank to generate one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenCreate(cmd, configPath, name, roleName, superuser)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "drover.yaml", "path to Drover config file")
	cmd.Flags().StringVar(&name, "name", "", "key holder name, recorded on history entries")
	cmd.Flags().StringVar(&roleName, "role", "", "existing role to bind the key to")
	cmd.Flags().BoolVar(&superuser, "superuser", false, "bind to the built-in superuser role")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runTokenCreate(cmd *cobra.Command, configPath, name, roleName string, superuser bool) error {
	out := cmd.OutOrStdout()

	if !superuser && roleName == "" {
		return fmt.Errorf("either --role or --superuser is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}

	var role models.Role
	if superuser {
		err = gormDB.Where(models.Role{Name: "superuser"}).
			Attrs(models.Role{IsSuperuser: true}).
			FirstOrCreate(&role).Error
		if err != nil {
			return fmt.Errorf("create superuser role: %w", err)
		}
	} else {
		if err := gormDB.Where("name = ?", roleName).First(&role).Error; err != nil {
			return fmt.Errorf("role %q not found", roleName)
		}
	}

	key, err := promptKey(out)
	if err != nil {
		return err
	}

	ak := models.APIKey{Key: key, Name: name, RoleID: role.ID}
	if err := gormDB.Create(&ak).Error; err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Fprintf(out, "API key for %q (role %s):\n\n  %s\n", name, role.Name, key)
	return nil
}

// promptKey reads a key from the terminal without echo, or generates a
// random one when the input is empty or stdin is not a terminal.
func promptKey(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(out, "API key (leave blank to generate): ")
		entered, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		if len(entered) > 0 {
			return string(entered), nil
		}
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
