package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clausewise/internal/app"
)

var hashPasswordCmd = &cobra.Command{
	Use:         "hash-password [password]",
	Short:       "Print the bcrypt hash for auth.password_hash",
	Long:        "Print the bcrypt hash for auth.password_hash. The password is read from stdin when not given.",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipBootstrap: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		password := ""
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		hash, err := app.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:         "token [username] [password]",
	Short:       "Issue an API token for the configured operator",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{skipBootstrap: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		auth := app.NewAuthService(cfg.Auth.Username, cfg.Auth.PasswordHash, cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute)
		result, err := auth.Login(app.LoginInput{Username: args[0], Password: args[1]})
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd, tokenCmd)
}
