package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	retriever "github.com/jshinodea/content-retriever"
	"github.com/jshinodea/content-retriever/internal/adapters/memory"
	"github.com/jshinodea/content-retriever/internal/config"
	"github.com/jshinodea/content-retriever/internal/logging"
	"github.com/jshinodea/content-retriever/pkg/protocol"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestration server",
	Long:  `Starts the WebSocket server that clients connect to for running content-retrieval tasks.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		logger := logging.New(cfg.Log.SlogLevel())

		// The demo worker stands in for the real extraction capability,
		// which plugs in behind ports.Worker.
		server := retriever.NewServer(cfg, memory.DemoWorker(), logger)

		if addr == "" {
			addr = cfg.Server.Addr()
		}
		srv := &http.Server{
			Addr:    addr,
			Handler: server.Handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Retriever Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			server.Hub.Broadcast(ctx, protocol.AgentMessage("server is shutting down"))

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Retriever Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
}
