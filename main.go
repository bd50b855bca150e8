package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/valyala/fasthttp"
	"github.com/wallboard/wallboard_screen/internal"
	"github.com/wallboard/wallboard_screen/internal/health"
	"github.com/wallboard/wallboard_screen/internal/project"
	"github.com/wallboard/wallboard_screen/internal/screen"
	"github.com/wallboard/wallboard_screen/internal/status"
	"github.com/wallboard/wallboard_screen/internal/user"
	"github.com/wallboard/wallboard_screen/internal/websocket"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := internal.NewViper()
	var configFile string

	cmd := &cobra.Command{
		Use:          "wallboard-screen",
		Short:        "Wallboard screen client",
		Long:         "Waits for a project to be assigned to this screen, then keeps it in sync with the wallboard server.",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := internal.LoadConfig(v, configFile)
			if err != nil {
				return err
			}
			internal.SetupLogger(config.Log)
			return run(cmd.Context(), config)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default is %s)", internal.DefaultConfigFile))
	flags.String("token", "", "project token to show instead of waiting for an assignment")
	flags.Int("code", 0, "six digit screen code (generated when empty)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	bindFlag(v, "screen.token", cmd, "token")
	bindFlag(v, "screen.code", cmd, "code")
	bindFlag(v, "log.level", cmd, "log-level")
	return cmd
}

func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, name string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
		panic(fmt.Sprintf("Failed to bind %s flag: %v", name, err))
	}
}

func run(ctx context.Context, config *internal.Config) error {
	code, err := screen.ResolveCode(config.Screen.Code)
	if err != nil {
		return err
	}

	var currentUser *user.User
	if config.Auth.Token != "" {
		currentUser, err = user.FromToken(config.Auth.Token)
		if err != nil {
			log.Warn().Err(err).Msg("Auth token carries no user, owned projects are disabled")
		}
	}

	channel := websocket.NewClient(config.Channel, config.Auth.Token)
	repository := project.NewRESTRepository(config.API, config.Auth.Token)
	store := project.NewStore()
	flow := screen.NewFlow(code, channel, repository, store, currentUser)

	healthEndpoints := health.NewEndpoints(version, channel.ConnectionState())
	statusEndpoints := status.NewEndpoints(version, flow, store, channel.ConnectionState())
	server := &fasthttp.Server{
		Handler: internal.NewRequestHandler(config.Status, healthEndpoints, statusEndpoints),
		Name:    "wallboard-screen",
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", config.Status.Addr).Msg("Status server listening")
		serverErr <- server.ListenAndServe(config.Status.Addr)
	}()

	log.Info().Str("code", code.String()).Str("version", version).Msg("Screen starting")

	runner := screen.NewRunner(flow, screen.Route{Token: config.Screen.Token}, config.Screen.RetryDelay)
	runErr := make(chan error, 1)
	go func() {
		runErr <- runner.Run(ctx)
	}()

	select {
	case err = <-runErr:
	case err = <-serverErr:
		err = fmt.Errorf("status server stopped: %w", err)
	}

	if shutdownErr := server.Shutdown(); shutdownErr != nil {
		log.Warn().Err(shutdownErr).Msg("Status server shutdown failed")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Screen stopped")
		return err
	}

	log.Info().Msg("Screen stopped")
	return nil
}
