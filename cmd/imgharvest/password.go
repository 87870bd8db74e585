package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"imgharvest/pkg/auth"
	"imgharvest/pkg/config"
	"imgharvest/pkg/ui"
)

var storePasswordCmd = &cobra.Command{
	Use:   "store-password",
	Short: "Manage the metadata database password in the system keychain",
	Long: `Store or remove the PostgreSQL password used by the metadata stage.

The entry is keyed by user, host, port and database name, so the
IMGHARVEST_DB_* settings in effect when the password is stored must match
those of the harvest run. IMGHARVEST_DB_PASSWORD and PGPASSWORD still take
precedence over the keychain.`,
}

var storePasswordSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Prompt for the password and store it",
	Args:  cobra.NoArgs,
	RunE:  runStorePasswordSet,
}

var storePasswordClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored password",
	Args:  cobra.NoArgs,
	RunE:  runStorePasswordClear,
}

func init() {
	rootCmd.AddCommand(storePasswordCmd)
	storePasswordCmd.AddCommand(storePasswordSetCmd)
	storePasswordCmd.AddCommand(storePasswordClearCmd)
}

func loadStoreConfig() (config.StoreConfig, error) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return config.StoreConfig{}, err
	}
	return cfg.Metadata.Store, nil
}

func runStorePasswordSet(cmd *cobra.Command, args []string) error {
	storeCfg, err := loadStoreConfig()
	if err != nil {
		return err
	}
	account := auth.AccountKey(storeCfg)

	fmt.Fprintf(cmd.OutOrStdout(), "Password for %s: ", account)
	password, err := readPassword()
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if err := auth.NewManager().Store(&auth.Credential{Account: account, Password: password}); err != nil {
		return err
	}

	ui.PrintSuccess(cmd.OutOrStdout(), "Password stored for "+account)
	return nil
}

func runStorePasswordClear(cmd *cobra.Command, args []string) error {
	storeCfg, err := loadStoreConfig()
	if err != nil {
		return err
	}
	account := auth.AccountKey(storeCfg)

	if err := auth.NewManager().Delete(account); err != nil {
		return err
	}

	ui.PrintSuccess(cmd.OutOrStdout(), "Password removed for "+account)
	return nil
}

// readPassword reads without echo from a terminal, else one line from stdin
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
