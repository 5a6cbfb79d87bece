package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/imbui/internal/preview"
)

var serveCmd = &cobra.Command{
	Use:     "serve <scene.yml>",
	Aliases: []string{"s"},
	Short:   "Serve a live preview of a scene",
	Long: `Start a preview server that replays a scene's frames on a timer and pushes
each rendered frame to connected browsers over a websocket. The scene file is
watched and reloaded when it changes.

Browser controls send next, prev, pause, play and reset commands back to the
server.

Examples:
  imbui serve todo.yml                    # Serve on localhost:7331
  imbui serve todo.yml -p 8080            # Serve on another port
  imbui serve todo.yml --interval 250ms   # Step faster
  imbui serve todo.yml --no-watch         # Don't reload on changes`,
	Args: sceneArg,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 7331, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Duration("interval", 0, "Delay between frames (default from config, 1s)")
	serveCmd.Flags().Bool("no-loop", false, "Stop after the last frame instead of starting over")
	serveCmd.Flags().Bool("no-watch", false, "Don't reload the scene when it changes")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("preview.interval", serveCmd.Flags().Lookup("interval"))

	AddFlagValidation(serveCmd, "port", ValidatePort)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if noLoop, _ := cmd.Flags().GetBool("no-loop"); noLoop {
		cfg.Preview.Loop = false
	}
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); noWatch {
		cfg.Watch.Enabled = false
	}

	srv, err := preview.New(cfg, args[0], logger)
	if err != nil {
		return fmt.Errorf("failed to load scene: %w", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Previewing %s at http://%s\n", args[0], cfg.Addr())

	if err := srv.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
