package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

// rootCmd is the offline cache entry point
var rootCmd = &cobra.Command{
	Use:           "offline-cache",
	Short:         "Offline-first caching proxy",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// serveCmd runs the caching proxy
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Install the configured version and serve the caching proxy",
	RunE:  runServe,
}

// installCmd installs the configured version into the shared store
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Precache and activate the configured version",
	RunE:  runInstall,
}

// clearCmd deletes every cache namespace
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cache namespace",
	RunE:  runClear,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $OFFLINE_CONFIG_FILE or "+defaultConfigPath+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(clearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withRoot builds the composition root, runs fn and releases resources
func withRoot(fn func(root *CompositionRoot) error) error {
	root, err := NewCompositionRoot(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	defer func() {
		if err := root.Cleanup(); err != nil {
			root.Logger.Error("Failed to cleanup resources", zap.Error(err))
		}
	}()

	return fn(root)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withRoot(func(root *CompositionRoot) error {
		ctx := cmd.Context()

		// The proxy passes requests through until a version is active
		if worker, err := root.Registration.Update(ctx); err != nil {
			root.Logger.Error("Initial install failed, serving without cache", zap.Error(err))
		} else {
			root.Logger.Info("Version active",
				zap.String("version", worker.Version()),
				zap.String("state", string(worker.State())))
		}

		root.Prober.Start()

		serverErr := make(chan error, 1)
		go func() {
			serverErr <- root.StartServer()
		}()

		// Wait for interrupt signal to gracefully shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-quit:
		}

		root.Logger.Info("Shutting down server...")

		// Create a deadline for shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := root.HTTPServer.Stop(shutdownCtx); err != nil {
			root.Logger.Error("HTTP server forced to shutdown", zap.Error(err))
		}

		root.Logger.Info("Server exited")
		return nil
	})
}

func runInstall(cmd *cobra.Command, args []string) error {
	return withRoot(func(root *CompositionRoot) error {
		worker, err := root.Registration.Update(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", worker.Version(), worker.State())
		return nil
	})
}

func runClear(cmd *cobra.Command, args []string) error {
	return withRoot(func(root *CompositionRoot) error {
		if err := root.Channel.ClearCache(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
		return nil
	})
}
