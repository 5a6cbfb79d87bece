package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/imbui/internal/config"
	"github.com/conneroisu/imbui/internal/scene"
)

var renderCmd = &cobra.Command{
	Use:     "render <scene.yml>",
	Aliases: []string{"r"},
	Short:   "Replay a scene and print each frame",
	Long: `Render every frame of a scene, in order, into one container and print the
resulting markup. Frames update the previous frame's DOM in place, so --stats
shows exactly which mutations each frame caused.

Examples:
  imbui render todo.yml                  # Print every frame
  imbui render todo.yml --stats          # Include mutation counts
  imbui render todo.yml --frame 2        # Print only the third frame
  imbui render todo.yml -f json          # One JSON object per frame`,
	Args: sceneArg,
	RunE: runRender,
}

var renderFrame int

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().IntVar(&renderFrame, "frame", -1, "Print only this frame (earlier frames still render)")
	renderCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	renderCmd.Flags().Bool("stats", false, "Include mutation counts")

	_ = viper.BindPFlag("render.format", renderCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("render.stats", renderCmd.Flags().Lookup("stats"))

	AddFlagValidation(renderCmd, "format", func(format string) error {
		return ValidateFormat(format, []string{"text", "json"})
	})
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	sc, err := scene.Load(args[0])
	if err != nil {
		return err
	}
	if renderFrame >= len(sc.Frames) {
		return fmt.Errorf("frame %d out of range: %s has %d frames", renderFrame, args[0], len(sc.Frames))
	}

	player := scene.NewPlayer(sc, logger)
	defer player.Reset()

	out := cmd.OutOrStdout()
	return player.Play(commandContext(cmd), func(res scene.FrameResult) error {
		if renderFrame >= 0 && res.Index != renderFrame {
			return nil
		}
		return writeFrame(out, res, cfg.Render)
	})
}

func writeFrame(w io.Writer, res scene.FrameResult, opts config.RenderConfig) error {
	if strings.ToLower(opts.Format) == "json" {
		var data []byte
		var err error
		if opts.Stats {
			data, err = res.JSON()
		} else {
			data, err = json.Marshal(struct {
				Index int    `json:"index"`
				HTML  string `json:"html"`
			}{res.Index, res.HTML})
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	if opts.Stats {
		_, err := io.WriteString(w, res.Text())
		return err
	}
	_, err := fmt.Fprintf(w, "-- frame %d\n%s\n", res.Index, res.HTML)
	return err
}
