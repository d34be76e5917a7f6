package cli

import (
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/config"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/remote"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
	"github.com/spf13/cobra"
)

var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Manage object store credentials",
	Long: `Manage per-profile credentials for the remote object store.

Credentials are kept in the system keyring when one is available,
falling back to files under the config directory. Environment
credentials (AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY) always take
precedence at runtime.`,
}

var credsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store credentials for a profile",
	RunE:  runCredsSet,
}

var credsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which credentials a profile resolves to",
	RunE:  runCredsShow,
}

var credsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a profile's stored credentials",
	RunE:  runCredsDelete,
}

var (
	credsAccessKeyID     string
	credsSecretAccessKey string
	credsSessionToken    string
)

func init() {
	credsSetCmd.Flags().StringVar(&credsAccessKeyID, "access-key-id", "", "Access key ID")
	credsSetCmd.Flags().StringVar(&credsSecretAccessKey, "secret-access-key", "", "Secret access key")
	credsSetCmd.Flags().StringVar(&credsSessionToken, "session-token", "", "Session token (optional)")
	_ = credsSetCmd.MarkFlagRequired("access-key-id")
	_ = credsSetCmd.MarkFlagRequired("secret-access-key")

	credsCmd.AddCommand(credsSetCmd)
	credsCmd.AddCommand(credsShowCmd)
	credsCmd.AddCommand(credsDeleteCmd)
	rootCmd.AddCommand(credsCmd)
}

func openCredentialStore() (*remote.CredentialStore, error) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return remote.NewCredentialStore(configDir), nil
}

func runCredsSet(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	store, err := openCredentialStore()
	if err != nil {
		return writeAppError(out, "creds.set", err)
	}

	creds := remote.Credentials{
		AccessKeyID:     credsAccessKeyID,
		SecretAccessKey: credsSecretAccessKey,
		SessionToken:    credsSessionToken,
	}
	if err := store.Save(flags.Profile, creds); err != nil {
		return writeAppError(out, "creds.set", err)
	}

	return out.WriteSuccess("creds.set", map[string]interface{}{
		"profile": flags.Profile,
		"backend": store.BackendName(),
	})
}

func runCredsShow(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	if creds := remote.LoadFromEnv(); creds != nil {
		return out.WriteSuccess("creds.show", map[string]interface{}{
			"profile":     flags.Profile,
			"source":      "environment",
			"accessKeyId": redactKey(creds.AccessKeyID),
		})
	}

	store, err := openCredentialStore()
	if err != nil {
		return writeAppError(out, "creds.show", err)
	}
	creds, err := store.Load(flags.Profile)
	if err != nil {
		return writeAppError(out, "creds.show", err)
	}

	return out.WriteSuccess("creds.show", map[string]interface{}{
		"profile":     flags.Profile,
		"source":      store.BackendName(),
		"accessKeyId": redactKey(creds.AccessKeyID),
	})
}

func runCredsDelete(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	if !flags.Force && !flags.Yes {
		return out.WriteError("creds.delete", utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"refusing to delete credentials without --force or --yes").Build())
	}

	store, err := openCredentialStore()
	if err != nil {
		return writeAppError(out, "creds.delete", err)
	}
	if err := store.Delete(flags.Profile); err != nil {
		return writeAppError(out, "creds.delete", err)
	}

	return out.WriteSuccess("creds.delete", map[string]interface{}{
		"profile": flags.Profile,
	})
}

// redactKey keeps just enough of an access key to identify it.
func redactKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
