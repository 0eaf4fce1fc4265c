package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexiqai/synth-session/internal/engine"
	"github.com/lexiqai/synth-session/internal/session"
)

type speakOptions struct {
	Profile  string
	Output   string
	LogPath  string
	Settings []string
	Timeout  time.Duration
}

func newSpeakCommand(logLevel *string) *cobra.Command {
	var opts speakOptions

	cmd := &cobra.Command{
		Use:     "speak [text]",
		Short:   "Synthesize text once and write a WAV file",
		Example: `synth-session speak --profile ja -o hello.wav --set speed=1.2 "こんにちは"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := parseSettings(opts.Settings)
			if err != nil {
				return err
			}

			rt, err := setup(*logLevel)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}

			res, err := speak(ctx, rt, rt.defaults().With(settings...), opts.Profile, strings.Join(args, " "), session.Output{
				AudioPath: opts.Output,
				LogPath:   opts.LogPath,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", res.AudioPath, res.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", "ja", "Profile to load")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "out.wav", "WAV file to write")
	cmd.Flags().StringVar(&opts.LogPath, "log", "", "Write the engine trace to this file")
	cmd.Flags().StringArrayVar(&opts.Settings, "set", nil, "Engine default name=value or name[index]=value; profile settings take precedence (repeatable)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "Give up after this long")

	return cmd
}

func parseSettings(raw []string) ([]engine.Setting, error) {
	settings := make([]engine.Setting, 0, len(raw))
	for _, s := range raw {
		setting, err := engine.ParseSetting(s)
		if err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, nil
}

// speak drives one session through select, synthesize and close.
func speak(ctx context.Context, rt *runtime, defaults engine.Configuration, profile, text string, out session.Output) (session.SynthesisFinished, error) {
	initialized := make(chan session.Initialized, 1)
	finished := make(chan session.SynthesisFinished, 1)

	sess, err := rt.newSession(defaults, session.ListenerFuncs{
		Initialized:       func(r session.Initialized) { initialized <- r },
		SynthesisFinished: func(r session.SynthesisFinished) { finished <- r },
	})
	if err != nil {
		return session.SynthesisFinished{}, err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sess.Close(closeCtx)
	}()

	if err := sess.SelectConfiguration(profile); err != nil {
		return session.SynthesisFinished{}, err
	}

	select {
	case r := <-initialized:
		if !r.Success {
			return session.SynthesisFinished{}, fmt.Errorf("%s: %s", session.InitializeFailedMessage, session.ErrorDetail(r.Err))
		}
	case <-ctx.Done():
		return session.SynthesisFinished{}, ctx.Err()
	}

	if _, err := sess.SubmitText(text, out); err != nil {
		return session.SynthesisFinished{}, err
	}

	select {
	case r := <-finished:
		if !r.Success {
			return r, errors.New("synthesis failed")
		}
		return r, nil
	case <-ctx.Done():
		return session.SynthesisFinished{}, ctx.Err()
	}
}
