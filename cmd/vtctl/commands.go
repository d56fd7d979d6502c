package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vtransform/internal/binding"
	"vtransform/internal/hotkey"
	"vtransform/internal/op"
	"vtransform/internal/transform"
)

func newStateCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.send(cmd, "get_state", nil)
		},
	}
}

func newOpCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "op <name>",
		Short: "Run an operation directly, bypassing key matching and the enable gate",
		Long:  "Run an operation directly. Names: " + strings.Join(opNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := op.Parse(args[0])
			if err != nil {
				return err
			}
			if o == op.Unset {
				return fmt.Errorf("operation name is empty")
			}
			return c.send(cmd, "op_invoked", map[string]op.Op{"op": o})
		},
	}
}

func opNames() []string {
	all := op.All()
	out := make([]string, len(all))
	for i, o := range all {
		out[i] = o.String()
	}
	return out
}

func newKeyCmd(c *client) *cobra.Command {
	var focus string
	var editable bool

	cmd := &cobra.Command{
		Use:   "key <chord>",
		Short: `Press a key chord, e.g. "Ctrl + Numpad8"`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := parseKeyEvent(args[0], focus, editable)
			if err != nil {
				return err
			}
			return c.send(cmd, "key_pressed", ev)
		},
	}
	cmd.Flags().StringVar(&focus, "focus", "", "node name of the focused element (INPUT, TEXTAREA, ...)")
	cmd.Flags().BoolVar(&editable, "editable", false, "the focused element is contenteditable")
	return cmd
}

func parseKeyEvent(chord, focus string, editable bool) (hotkey.KeyEvent, error) {
	ch, err := binding.ParseChord(chord)
	if err != nil {
		return hotkey.KeyEvent{}, err
	}
	return hotkey.KeyEvent{
		Chord:  ch,
		Target: hotkey.Focus{NodeName: strings.ToUpper(focus), ContentEditable: editable},
	}, nil
}

func newToggleCmd(c *client) *cobra.Command {
	var images bool
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Toggle hotkeys for videos (or images with --images)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := op.ToggleHotkeys
			if images {
				o = op.ToggleHotkeysImages
			}
			return c.send(cmd, "op_invoked", map[string]op.Op{"op": o})
		},
	}
	cmd.Flags().BoolVar(&images, "images", false, "toggle for images instead of videos")
	return cmd
}

func newElementsCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "elements <WxH>...",
		Short: "Report the natural sizes of the live target elements",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dims, err := parseDimensions(args)
			if err != nil {
				return err
			}
			return c.send(cmd, "elements_observed", map[string][]transform.Dimensions{"elements": dims})
		},
	}
}

// parseDimensions reads "1920x1080" style sizes.
func parseDimensions(args []string) ([]transform.Dimensions, error) {
	out := make([]transform.Dimensions, 0, len(args))
	for _, a := range args {
		w, h, ok := strings.Cut(strings.ToLower(a), "x")
		if !ok {
			return nil, fmt.Errorf("element size %q: want WIDTHxHEIGHT", a)
		}
		width, err := strconv.ParseFloat(w, 64)
		if err != nil || width < 0 {
			return nil, fmt.Errorf("element size %q: bad width", a)
		}
		height, err := strconv.ParseFloat(h, 64)
		if err != nil || height < 0 {
			return nil, fmt.Errorf("element size %q: bad height", a)
		}
		out = append(out, transform.Dimensions{Width: width, Height: height})
	}
	return out, nil
}

func newPageCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "page [url]",
		Short: "Signal a navigation; the session resets to identity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{}
			if len(args) == 1 {
				payload["url"] = args[0]
			}
			return c.send(cmd, "page_changed", payload)
		},
	}
}

func newAlwaysOnCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:       "always-on <video|image|off>",
		Short:     "Change the session gate without touching stored options",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"video", "image", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := hotkey.ParseMode(args[0])
			if err != nil {
				return err
			}
			return c.send(cmd, "apply_always_on", map[string]hotkey.Mode{"mode": m})
		},
	}
}

func newOptionsCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show or edit the stored options",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the active options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.query(cmd, "get_state", "options")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit <json|->",
		Short: "Merge a partial options snapshot over the active options",
		Long:  "Merge a partial options snapshot (a JSON object, or - to read stdin) over the active options. Absent keys keep their values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readJSONArg(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return c.send(cmd, "options_edited", map[string]json.RawMessage{"options": raw})
		},
	})
	return cmd
}

func newResetPresetCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-preset [name]",
		Short: "Install a shipped preset with the default always-on mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := binding.DefaultPresetName
			if len(args) == 1 {
				name = args[0]
			}
			if !binding.IsPresetName(name) {
				return fmt.Errorf("unknown preset %q (want one of %s)", name, strings.Join(presetNames(), ", "))
			}
			return c.send(cmd, "reset_to_preset", map[string]string{"preset": name})
		},
	}
}

func presetNames() []string {
	ps := binding.Presets()
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func newSettingsCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "settings <json|file|->",
		Short: "Patch the session transform settings without touching stored options",
		Long:  `Patch the session transform settings, e.g. '{"target_tag_name":"img"}' or '{"rotate_increment":15}'. A new target resets the transform.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readJSONArg(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return c.send(cmd, "patch_transform_settings", map[string]json.RawMessage{"settings": raw})
		},
	}
}

func newPresetsCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the shipped presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.send(cmd, "get_presets", nil)
		},
	}
}

func newClassifyCmd(c *client) *cobra.Command {
	var alwaysOn string
	cmd := &cobra.Command{
		Use:   "classify <file|->",
		Short: "Label a hotkey table (JSON array) with its preset name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readJSONArg(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			payload := map[string]any{"hotkeys": raw}
			if alwaysOn != "" {
				payload["always_on"] = alwaysOn
			}
			return c.send(cmd, "classify", payload)
		},
	}
	cmd.Flags().StringVar(&alwaysOn, "always-on", "", "always-on mode to classify with")
	return cmd
}

// readJSONArg returns arg itself when it is JSON, stdin for "-", and the file
// contents otherwise.
func readJSONArg(arg string, stdin io.Reader) (json.RawMessage, error) {
	var b []byte
	var err error
	switch {
	case arg == "-":
		b, err = io.ReadAll(stdin)
	case json.Valid([]byte(arg)):
		b = []byte(arg)
	default:
		b, err = os.ReadFile(arg)
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("%s: not valid JSON", arg)
	}
	return json.RawMessage(b), nil
}
