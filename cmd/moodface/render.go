package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dj-oyu/moodface/internal/avatar"
	"github.com/dj-oyu/moodface/internal/emotion"
)

type renderOptions struct {
	emotion string
	out     string
	format  string
	quality int
}

func newRenderCmd(a *app) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the avatar for one emotion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.emotion, "emotion", "e", "", "Emotion to draw: happy, surprised, sleepy, sad or neutral (required)")
	f.StringVarP(&opts.out, "out", "o", "-", "Output file, - for stdout")
	f.StringVar(&opts.format, "format", "png", "Output format: png, jpeg or rgb (raw 24-bit, 640x480)")
	f.IntVar(&opts.quality, "quality", 90, "JPEG quality (1-100)")
	_ = cmd.MarkFlagRequired("emotion")
	return cmd
}

func runRender(cmd *cobra.Command, opts *renderOptions) error {
	e, err := emotion.ParseEmotion(opts.emotion)
	if err != nil {
		return err
	}
	img := avatar.Render(e)

	var out io.Writer = cmd.OutOrStdout()
	var file *os.File
	if opts.out != "-" {
		file, err = os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		out = file
	}
	bw := bufio.NewWriter(out)

	switch opts.format {
	case "png":
		err = avatar.EncodePNG(bw, img)
	case "jpeg", "jpg":
		err = avatar.EncodeJPEG(bw, img, opts.quality)
	case "rgb":
		_, err = bw.Write(avatar.PackRGB(img))
	default:
		err = fmt.Errorf("unknown format %q (want png, jpeg or rgb)", opts.format)
	}
	if err == nil {
		err = bw.Flush()
	}
	if file != nil {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
