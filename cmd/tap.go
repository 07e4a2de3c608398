package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"timemachine/internal/server"
)

var tapCount int

var tapCmd = &cobra.Command{
	Use:   "tap",
	Short: "Connect to the sample socket and print chunk headers",
	Long: `Connect to a running service's Unix socket and print one line per
received chunk. Useful to check what a DSP client would see.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return tap(ctx, cfg.Server.SocketPath, tapCount, cmd.OutOrStdout())
	},
}

func init() {
	tapCmd.Flags().IntVarP(&tapCount, "count", "n", 0, "exit after this many chunks (0 = until interrupted)")
}

func tap(ctx context.Context, socketPath string, count int, w io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for n := 0; count == 0 || n < count; n++ {
		h, samples, err := server.ReadChunkFrame(conn)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fmt.Fprintf(w, "%s  %.4f MHz  %d S/s  pos=%.5f  %d bytes\n",
			h.Timestamp.Format("15:04:05.000"),
			float64(h.CenterFrequency)/1e6,
			h.SampleRate,
			h.Position,
			len(samples),
		)
	}
	return nil
}
