package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"magpie/config"
	"magpie/host/notify"
	"magpie/host/receiver"
	"magpie/recorder"
	"magpie/storage"
	"magpie/targets/sim"

	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Record from a simulated board",
	Long: `simulate runs the recorder against a simulated board carrying a 1 kHz
tone on channel 0 and 3 kHz on channel 1. With --link the files travel
through the storage link encoder and the receiver, exactly as they would
from a real device; otherwise they are written straight to the output
directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		recCfg, err := loadRecording(cmd)
		if err != nil {
			return err
		}
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			cfg.OutputDir = out
		}
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		files, _ := cmd.Flags().GetInt("files")
		if !cmd.Flags().Changed("files") && recCfg.FileCount != 0 {
			files = int(recCfg.FileCount)
		}
		useLink, _ := cmd.Flags().GetBool("link")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !useLink {
			return simulate(ctx, recCfg, storage.NewFileSink(cfg.OutputDir), files)
		}

		pub, err := notify.New(cfg.NATS.URL, cfg.Device, cfg.NATS.Attempts, 2*time.Second)
		if err != nil {
			return err
		}
		defer pub.Close()

		pr, pw := io.Pipe()
		recv := receiver.New(cfg.OutputDir, cfg.Device, pub, slog.Default())
		done := make(chan error, 1)
		go func() {
			err := recv.Run(context.Background(), pr)
			// Unblock the device side if the receiver gave up early.
			pr.CloseWithError(err)
			done <- err
		}()

		simErr := simulate(ctx, recCfg, storage.NewLinkSink(pw), files)
		pw.Close()
		if err := <-done; err != nil {
			return fmt.Errorf("receiver: %w", err)
		}
		return simErr
	},
}

func init() {
	simulateCmd.Flags().StringP("output", "o", "", "output directory (overrides config)")
	simulateCmd.Flags().String("recording", "", "device JSON configuration (overrides config)")
	simulateCmd.Flags().IntP("files", "n", 1, "number of files, 0 to run until interrupted (default from file_count when set)")
	simulateCmd.Flags().Bool("link", false, "send files through the storage link and receiver")
}

func loadRecording(cmd *cobra.Command) (*config.RecorderConfig, error) {
	path := cfg.Recording
	if p, _ := cmd.Flags().GetString("recording"); p != "" {
		path = p
	}
	if path == "" {
		return config.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording config: %w", err)
	}
	rc, err := config.LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("recording config %s: %w", path, err)
	}
	return rc, nil
}

func simulate(ctx context.Context, rc *config.RecorderConfig, sink storage.Sink, files int) error {
	board := sim.NewBoard()
	stack, err := board.Assemble(sim.StackConfig{
		ChunkSamples: int(rc.ChunkSamples),
		SyncTimeout:  rc.SyncTimeout(),
	}, sink)
	if err != nil {
		return fmt.Errorf("assemble simulated board: %w", err)
	}
	defer stack.Close()

	s := recorder.SessionFromConfig(rc)
	slog.Info("simulating", "rate", s.Rate, "bits", s.Depth, "channels", s.Mode.String(),
		"gain_db", s.Gain, "duration", s.Duration, "files", files)

	finished := 0
	_, err = recorder.RunContinuous(ctx, stack.Recorder, s, recorder.SystemTime{}, rc.FilePrefix, files,
		func(res recorder.Result) {
			finished++
			slog.Info("file finished", "name", res.Name, "bytes", res.FileLength,
				"chunks", res.Chunks, "flushes", res.Flushes, "stopped", res.Stopped)
		})
	if errors.Is(err, recorder.ErrStopped) {
		slog.Info("stopped", "files", finished)
		return nil
	}
	return err
}
