package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/timeclerk/timeclerk/internal/profile"
	"github.com/timeclerk/timeclerk/plugin/agent"
	"github.com/timeclerk/timeclerk/plugin/kantata"
	apiv1 "github.com/timeclerk/timeclerk/server/router/api/v1"
	"github.com/timeclerk/timeclerk/server/service/timeentry"
)

const version = "0.3.0"

var (
	instanceProfile *profile.Profile

	rootCmd = &cobra.Command{
		Use:   "timeclerk",
		Short: "Time-entry tool server for the Kantata OX API",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServer(ctx)
		},
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Interactive time-tracking assistant backed by the tool server",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runChat(ctx)
		},
	}
)

func init() {
	viper.SetEnvPrefix("timeclerk")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "binding address for the tool server")
	rootCmd.PersistentFlags().Int("port", 8230, "binding port for the tool server")
	for _, flag := range []string{"mode", "addr", "port"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetDefault("kantata-base-url", "")
	viper.SetDefault("openai-model", "")
	viper.SetDefault("server-url", "")

	rootCmd.AddCommand(chatCmd)

	cobra.OnInitialize(func() {
		instanceProfile = &profile.Profile{
			Mode:           viper.GetString("mode"),
			Addr:           viper.GetString("addr"),
			Port:           viper.GetInt("port"),
			Version:        version,
			KantataToken:   viper.GetString("kantata-token"),
			KantataBaseURL: viper.GetString("kantata-base-url"),
			OpenAIAPIKey:   viper.GetString("openai-api-key"),
			OpenAIBaseURL:  viper.GetString("openai-base-url"),
			OpenAIModel:    viper.GetString("openai-model"),
			ServerURL:      viper.GetString("server-url"),
		}
	})
}

func newLogger(p *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runServer(ctx context.Context) error {
	if err := instanceProfile.Validate(); err != nil {
		return err
	}
	logger := newLogger(instanceProfile)
	slog.SetDefault(logger)

	client := kantata.NewClient(instanceProfile.KantataBaseURL, instanceProfile.KantataToken)
	service := timeentry.NewService(client, client, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	api := apiv1.NewAPIV1Service(instanceProfile, service, logger)
	api.Register(e)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("timeclerk server started",
		slog.String("version", version),
		slog.String("addr", instanceProfile.ListenAddr()),
		slog.String("mode", instanceProfile.Mode))

	if err := e.Start(instanceProfile.ListenAddr()); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runChat(ctx context.Context) error {
	if err := instanceProfile.Validate(); err != nil {
		return err
	}
	if !instanceProfile.IsAgentEnabled() {
		return fmt.Errorf("chat requires TIMECLERK_OPENAI_API_KEY to be set")
	}
	logger := newLogger(instanceProfile)

	chatAgent, err := agent.New(agent.Config{
		APIKey:    instanceProfile.OpenAIAPIKey,
		BaseURL:   instanceProfile.OpenAIBaseURL,
		Model:     instanceProfile.OpenAIModel,
		ServerURL: instanceProfile.ServerURL,
	}, logger)
	if err != nil {
		return err
	}

	session := chatAgent.NewSession()
	fmt.Printf("timeclerk chat (session %s), type 'exit' to quit\n", session.ID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		reply, err := session.Send(ctx, input)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(reply.Text)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
