package main

import (
	"context"
	"fmt"
	"os"

	"github.com/brizzai/oauth-flow/internal/auth"
	"github.com/brizzai/oauth-flow/internal/auth/providers"
	"github.com/brizzai/oauth-flow/internal/config"
	"github.com/brizzai/oauth-flow/internal/logger"
	"github.com/brizzai/oauth-flow/internal/server"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "oauth-flow",
	Short: "Sign in with Google using the OAuth2 authorization code flow",
	Long: `oauth-flow serves a login link to Google's consent page and handles the
redirect back: it exchanges the authorization code for an access token and
shows the user's Google profile with a timestamp attached.

Configuration comes from config.yaml, OAUTH_FLOW_* environment variables and flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

var authURLCmd = &cobra.Command{
	Use:   "auth-url",
	Short: "Print the Google authorization URL",
	Args:  cobra.NoArgs,
	RunE:  runAuthURL,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	rootCmd.AddCommand(authURLCmd, configCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	app := fx.New(
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger().Named("fx")}
		}),
		auth.Module,
		server.Module,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	sig := <-app.Wait()
	logger.Info("Stopping", zap.String("signal", fmt.Sprint(sig.Signal)), zap.Int("exit_code", sig.ExitCode))

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop cleanly: %w", err)
	}

	if sig.ExitCode != 0 {
		return fmt.Errorf("server exited with code %d", sig.ExitCode)
	}
	return nil
}

func runAuthURL(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	provider, err := providers.NewGoogleProvider(&cfg.OAuth)
	if err != nil {
		return err
	}
	pterm.Info.Println("Open this URL in a browser to sign in:")
	// plain output so the URL can be piped
	fmt.Fprintln(cmd.OutOrStdout(), provider.AuthURL())
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	pterm.DefaultSection.Println("Effective configuration")
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}
