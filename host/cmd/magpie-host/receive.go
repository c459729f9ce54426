package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"magpie/host/notify"
	"magpie/host/receiver"
	"magpie/host/serial"

	"github.com/spf13/cobra"
)

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Receive recordings from a recorder on a serial port",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Serial.Port = port
		}
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			cfg.OutputDir = out
		}
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		pub, err := notify.New(cfg.NATS.URL, cfg.Device, cfg.NATS.Attempts, 2*time.Second)
		if err != nil {
			return err
		}
		defer pub.Close()

		port, err := serial.Open(&serial.Config{
			Device:      cfg.Serial.Port,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeoutMs,
		})
		if err != nil {
			return err
		}
		defer port.Close()
		if err := port.Flush(); err != nil {
			slog.Warn("flush failed", "error", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		slog.Info("receiving", "port", cfg.Serial.Port, "output", cfg.OutputDir, "device", cfg.Device)
		r := receiver.New(cfg.OutputDir, cfg.Device, pub, slog.Default())
		err = r.Run(ctx, port)

		st := r.Stats()
		slog.Info("link closed", "files", len(r.Recordings()), "frames", st.Frames,
			"crc_errors", st.CRCErrors, "seq_gaps", st.SeqGaps)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	receiveCmd.Flags().StringP("port", "P", "", "serial device (overrides config)")
	receiveCmd.Flags().StringP("output", "o", "", "output directory (overrides config)")
}
