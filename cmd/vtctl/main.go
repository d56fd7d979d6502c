// Command vtctl drives a running vtransformd over its control socket.
//
//	vtctl op zoom_in
//	vtctl key "Alt + Numpad3"
//	vtctl toggle --images
//	vtctl options edit '{"disable_alt":true}'
//	vtctl reset-preset alt_hotkeys
//	vtctl settings '{"target_tag_name":"img"}'
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"vtransform/internal/ipc"
)

const version = "1.0.0"

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *charmlog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func loggerFromContext(ctx context.Context) *charmlog.Logger {
	if l, ok := ctx.Value(loggerKey).(*charmlog.Logger); ok {
		return l
	}
	return charmlog.Default()
}

func newLogger(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// client carries the flags shared by every subcommand.
type client struct {
	socket  string
	timeout time.Duration
	raw     bool
}

// send wraps payload in an envelope of type typ and prints the response data.
func (c *client) send(cmd *cobra.Command, typ string, payload any) error {
	env, err := ipc.NewEnvelope(typ, payload)
	if err != nil {
		return err
	}
	return c.sendEnvelope(cmd, env)
}

// query sends typ and prints only the part of the answer at the gjson path.
func (c *client) query(cmd *cobra.Command, typ, path string) error {
	data, err := c.roundTrip(cmd, ipc.Envelope{Type: typ})
	if err != nil {
		return err
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return fmt.Errorf("%s: response has no %q", typ, path)
	}
	return c.print(cmd.OutOrStdout(), json.RawMessage(res.Raw))
}

func (c *client) sendEnvelope(cmd *cobra.Command, env ipc.Envelope) error {
	data, err := c.roundTrip(cmd, env)
	if err != nil {
		return err
	}
	return c.print(cmd.OutOrStdout(), data)
}

func (c *client) roundTrip(cmd *cobra.Command, env ipc.Envelope) (json.RawMessage, error) {
	logger := loggerFromContext(cmd.Context())
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	logger.Debug("sending", "type", env.Type, "socket", c.socket)
	return ipc.Send(ctx, c.socket, env)
}

func (c *client) print(w io.Writer, data json.RawMessage) error {
	if len(data) == 0 {
		fmt.Fprintln(w, "ok")
		return nil
	}
	if c.raw {
		_, err := fmt.Fprintf(w, "%s\n", data)
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	var verbose bool
	c := &client{}

	root := &cobra.Command{
		Use:          "vtctl",
		Short:        "Control a running vtransformd",
		Long:         `vtctl sends host events and queries to vtransformd over its unix control socket and prints the daemon's answer as JSON.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.socket, "socket", "s", ipc.DefaultSocketPath, "daemon control socket")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 3*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&c.raw, "raw", false, "print the response without indentation")

	root.AddCommand(
		newStateCmd(c),
		newOpCmd(c),
		newKeyCmd(c),
		newToggleCmd(c),
		newElementsCmd(c),
		newPageCmd(c),
		newAlwaysOnCmd(c),
		newSettingsCmd(c),
		newOptionsCmd(c),
		newResetPresetCmd(c),
		newPresetsCmd(c),
		newClassifyCmd(c),
	)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
