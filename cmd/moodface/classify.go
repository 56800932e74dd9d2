package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dj-oyu/moodface/internal/avatar"
	"github.com/dj-oyu/moodface/internal/codec"
	"github.com/dj-oyu/moodface/internal/emotion"
	"github.com/dj-oyu/moodface/internal/logger"
	"github.com/dj-oyu/moodface/internal/pipeline"
)

type classifyOptions struct {
	input     string
	stabilize int
	avatarDir string
	format    string
}

func newClassifyCmd(a *app) *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Replay a recorded JSON-lines landmark session through the classifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("stabilize") {
				opts.stabilize = a.cfg.StabilizeFrames
			}
			return runClassify(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "JSON-lines session file, - for stdin (required)")
	f.IntVar(&opts.stabilize, "stabilize", 1, "Consecutive frames required before the label changes")
	f.StringVar(&opts.avatarDir, "avatar-dir", "", "Write frame_NNNNNN.png avatars into this directory")
	f.StringVar(&opts.format, "format", "text", "Output format: text or json")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runClassify(cmd *cobra.Command, opts *classifyOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", opts.format)
	}

	var in io.Reader = cmd.InOrStdin()
	if opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	pipeOpts := []pipeline.Option{pipeline.WithStabilizer(opts.stabilize)}
	if opts.avatarDir == "" {
		pipeOpts = append(pipeOpts, pipeline.WithoutRender())
	} else if err := os.MkdirAll(opts.avatarDir, 0o755); err != nil {
		return fmt.Errorf("create avatar dir: %w", err)
	}
	p := pipeline.New(pipeOpts...)

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	counts := make(map[emotion.Emotion]int)
	total := 0

	sc := codec.NewLandmarkFrameScanner(in)
	for sc.Scan() {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		res := p.Process(sc.Frame())
		counts[res.Emotion]++
		total++

		ev := codec.EventFromResult(res)
		if opts.format == "json" {
			if err := enc.Encode(ev); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out, formatEvent(ev))
		}

		if res.Image != nil {
			if err := writeAvatar(opts.avatarDir, res); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", opts.input, err)
	}
	logger.Info("Classify", "Processed %d frames from %s", total, opts.input)

	if opts.format == "text" {
		printSummary(out, counts, total)
	}
	return nil
}

func formatEvent(ev codec.EmotionEvent) string {
	label := ev.Emotion
	if e, err := emotion.ParseEmotion(ev.Emotion); err == nil {
		label = e.Label()
	}
	if ev.Features == nil {
		return fmt.Sprintf("frame %6d  %-9s  rule=%s", ev.FrameNumber, label, ev.Rule)
	}
	f := ev.Features
	return fmt.Sprintf("frame %6d  %-9s  rule=%-11s eye=%.4f open=%.4f width=%.4f droop=%+.4f teeth=%t",
		ev.FrameNumber, label, ev.Rule, f.AvgEyeOpen, f.MouthOpenness, f.MouthWidth, f.LipDroop, f.ShowingTeeth)
}

func printSummary(out io.Writer, counts map[emotion.Emotion]int, total int) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EMOTION\tFRAMES\tSHARE")
	fmt.Fprintln(w, "-------\t------\t-----")
	for _, e := range emotion.All() {
		share := 0.0
		if total > 0 {
			share = 100 * float64(counts[e]) / float64(total)
		}
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", e.Label(), counts[e], share)
	}
	fmt.Fprintf(w, "TOTAL\t%d\t\n", total)
	w.Flush()
}

func writeAvatar(dir string, res pipeline.Result) error {
	path := filepath.Join(dir, fmt.Sprintf("frame_%06d.png", res.FrameNumber))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create avatar: %w", err)
	}
	if err := avatar.EncodePNG(f, res.Image); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
