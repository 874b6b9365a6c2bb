package main

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"termio/internal/ascii"
	"termio/internal/client"
	"termio/internal/pkg/logx"
	"termio/internal/pkg/randx"
	"termio/internal/protocol"
)

func chatCmd() *cobra.Command {
	var (
		serverURL string
		username  string
		fps       int
		width     int
		height    int
		mono      bool
		synthetic bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join a TermIO server as a headless client",
		Long: `Connect to a TermIO server, print incoming chat and presence events,
and send lines read from stdin as chat messages.

With --synthetic the client also streams generated test-pattern frames at the
configured frame rate, standing in for a real capture source.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(serverURL, username, fps, width, height, mono, synthetic)
		},
	}

	cmd.Flags().StringVarP(&serverURL, "server", "s", "ws://127.0.0.1:8080/ws", "server WebSocket URL")
	cmd.Flags().StringVarP(&username, "name", "n", "", "display name (random guest name when omitted)")
	cmd.Flags().IntVar(&fps, "fps", 30, "synthetic frame rate")
	cmd.Flags().IntVar(&width, "width", 80, "synthetic frame width in cells")
	cmd.Flags().IntVar(&height, "height", 24, "synthetic frame height in cells")
	cmd.Flags().BoolVar(&mono, "mono", false, "collapse synthetic frame colors to grayscale")
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "stream generated test-pattern frames")

	return cmd
}

func runChat(serverURL, username string, fps, width, height int, mono, synthetic bool) error {
	logx.InitGlobalLogger(false)

	if fps < 1 || fps > 60 {
		return fmt.Errorf("fps must be between 1 and 60, got %d", fps)
	}

	if username == "" {
		generated, err := randx.GuestName()
		if err != nil {
			return fmt.Errorf("failed to generate guest name: %w", err)
		}
		username = generated
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handlers := client.Handlers{
		OnAck: func(success bool, message string) {
			fmt.Printf("* %s\n", message)
		},
		OnUserList: func(users []protocol.UserInfo) {
			names := make([]string, 0, len(users))
			for _, u := range users {
				names = append(names, u.Username)
			}
			fmt.Printf("* online: %s\n", strings.Join(names, ", "))
		},
		OnUserJoined: func(event protocol.UserEvent) {
			fmt.Printf("* %s joined\n", event.Username)
		},
		OnUserLeft: func(event protocol.UserEvent) {
			fmt.Printf("* %s left\n", event.Username)
		},
		OnChat: func(userID, username, content string) {
			fmt.Printf("<%s> %s\n", username, content)
		},
		OnFrame: func(userID, username string, frame *protocol.Frame) {
			// Headless: frames are acknowledged, not rendered.
		},
		OnClose: func(err error) {
			if err != nil {
				fmt.Printf("* connection lost: %v\n", err)
			}
		},
	}

	c, err := client.Dial(ctx, serverURL, username, handlers)
	if err != nil {
		return err
	}
	defer c.Close()

	if synthetic {
		go streamSyntheticFrames(c, fps, width, height, mono)
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if err := c.SendChat(line); err != nil {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-c.Done():
	}
	return nil
}

// streamSyntheticFrames sends a moving gradient test pattern through the same
// pixel-to-glyph transform a real capture producer would use.
func streamSyntheticFrames(c *client.Client, fps, width, height int, mono bool) {
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	pixels := make([]byte, width*height*3)
	phase := 0.0

	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
		}

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := (y*width + x) * 3
				wave := math.Sin(float64(x)/8+phase) * math.Cos(float64(y)/4+phase)
				level := uint8((wave + 1) / 2 * 255)
				pixels[idx] = level
				pixels[idx+1] = uint8(float64(level) * 0.7)
				pixels[idx+2] = 255 - level
			}
		}
		phase += 0.2

		frame, err := ascii.FrameFromRGB24(pixels, width*3, width, height, mono)
		if err != nil {
			return
		}
		if err := c.SendFrame(frame); err != nil {
			return
		}
	}
}
