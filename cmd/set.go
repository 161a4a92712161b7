package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ffx64/nowplaying-rpc/client"
	"github.com/spf13/cobra"
)

type setFlags struct {
	kind       string
	state      string
	details    string
	largeImage string
	largeText  string
	smallImage string
	smallText  string
	elapsed    time.Duration
	duration   time.Duration
	buttons    []string
}

func setCmd(flags *globalFlags) *cobra.Command {
	var f setFlags

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Publish a single activity and hold it until interrupted",
		Example: `  nowplaying-rpc set --type listening --details "Song" --state "Album" \
    --duration 3m20s --elapsed 50s --large-text "Artist"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := f.activity(cmd, time.Now())
			if err != nil {
				return err
			}
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			cli := newClient(cfg, logger)
			if err := cli.Connect(ctx); err != nil {
				return fmt.Errorf("connect to discord: %w", err)
			}
			defer cli.Close()

			if err := cli.SetActivity(act); err != nil {
				return fmt.Errorf("set activity: %w", err)
			}
			logger.Info().Msg("activity set, keeping the process alive")
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.kind, "type", "t", "listening", "activity type (game, streaming, listening, watching, custom, competing)")
	cmd.Flags().StringVar(&f.state, "state", "", "state line")
	cmd.Flags().StringVar(&f.details, "details", "", "details line")
	cmd.Flags().StringVar(&f.largeImage, "large-image", "", "large image key or URL")
	cmd.Flags().StringVar(&f.largeText, "large-text", "", "large image tooltip")
	cmd.Flags().StringVar(&f.smallImage, "small-image", "", "small image key or URL")
	cmd.Flags().StringVar(&f.smallText, "small-text", "", "small image tooltip")
	cmd.Flags().DurationVar(&f.elapsed, "elapsed", 0, "position within the track")
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "track length, enables the progress bar")
	cmd.Flags().StringSliceVar(&f.buttons, "button", nil, "button as label=url (max 2)")

	return cmd
}

var activityTypes = map[string]client.ActivityType{
	"game":      client.Game,
	"playing":   client.Game,
	"streaming": client.Streaming,
	"listening": client.Listening,
	"watching":  client.Watching,
	"custom":    client.Custom,
	"competing": client.Competing,
}

// activity builds the activity from the flags that were actually given, so
// unset flags stay absent from the payload.
func (f setFlags) activity(cmd *cobra.Command, now time.Time) (client.Activity, error) {
	kind, ok := activityTypes[strings.ToLower(f.kind)]
	if !ok {
		return client.Activity{}, fmt.Errorf("unknown activity type %q", f.kind)
	}
	act := client.Activity{Type: kind}

	changed := cmd.Flags().Changed
	if changed("state") {
		act.State = client.String(f.state)
	}
	if changed("details") {
		act.Details = client.String(f.details)
	}

	assets := client.Assets{}
	if changed("large-image") {
		assets.LargeImage = client.String(f.largeImage)
	}
	if changed("large-text") {
		assets.LargeText = client.String(f.largeText)
	}
	if changed("small-image") {
		assets.SmallImage = client.String(f.smallImage)
	}
	if changed("small-text") {
		assets.SmallText = client.String(f.smallText)
	}
	if assets != (client.Assets{}) {
		act.Assets = &assets
	}

	if changed("duration") {
		var elapsed *int64
		if changed("elapsed") {
			elapsed = client.Int64(int64(f.elapsed.Seconds()))
		}
		act.Timestamps = client.DeriveTimestamps(client.Int64(now.Unix()), client.Int64(int64(f.duration.Seconds())), elapsed)
	} else {
		act.Timestamps = &client.Timestamps{Start: client.Int64(now.Unix())}
	}

	for _, b := range f.buttons {
		label, url, ok := strings.Cut(b, "=")
		if !ok {
			return client.Activity{}, fmt.Errorf("button %q is not label=url", b)
		}
		act.Buttons = append(act.Buttons, client.Button{Label: label, Url: url})
	}
	return act, nil
}
