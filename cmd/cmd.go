// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func userFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "Act for this user id instead of the last authorized one",
	}
}

// setupCommand handles database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize config file, database, and migrations",
		Flags: []cli.Flag{configFlag()},
		Action: r.SetupDatabase,
	}
}

// authCommand handles the OAuth flow and token lifecycle operations.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify using OAuth2",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Auth,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the stored token record for the active user",
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:   "revoke",
				Usage:  "Revoke the stored refresh token",
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.AuthRevoke,
			},
		},
	}
}

// devicesCommand lists available playback devices.
func devicesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List available playback devices",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Devices,
	}
}

// playCommand cues a track or resumes paused playback.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a track by URI, or resume when no URI is given",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "uri"},
		},
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.StringFlag{
				Name:    "device",
				Aliases: []string{"d"},
				Usage:   "Target device id (default: resolve automatically)",
			},
			&cli.BoolFlag{
				Name:  "cue",
				Usage: "Load the track paused instead of starting playback",
			},
		},
		Action: r.Play,
	}
}

func pauseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "pause",
		Usage:  "Pause playback",
		Flags:  []cli.Flag{configFlag(), userFlag()},
		Action: r.Pause,
	}
}

func stopCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stop",
		Usage:  "Stop playback and rewind to the start",
		Flags:  []cli.Flag{configFlag(), userFlag()},
		Action: r.Stop,
	}
}

func nextCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "next",
		Aliases: []string{"n"},
		Usage:   "Skip to the next track (requires an active session queue)",
		Flags:   []cli.Flag{configFlag(), userFlag()},
		Action:  r.Next,
	}
}

func previousCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "previous",
		Aliases: []string{"prev"},
		Usage:   "Restart the current track",
		Flags:   []cli.Flag{configFlag(), userFlag()},
		Action:  r.Previous,
	}
}

// seekCommand jumps to a position in the current track.
func seekCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "seek",
		Usage: "Seek to a position (milliseconds or m:ss)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "position"},
		},
		Flags:  []cli.Flag{configFlag(), userFlag()},
		Action: r.Seek,
	}
}

// volumeCommand sets the playback volume.
func volumeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "volume",
		Aliases: []string{"vol"},
		Usage:   "Set playback volume (0-100)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "percent"},
		},
		Flags:  []cli.Flag{configFlag(), userFlag()},
		Action: r.Volume,
	}
}

// shuffleCommand toggles shuffle on the saved session queue.
func shuffleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "shuffle",
		Usage:  "Toggle shuffle on the saved queue",
		Flags:  []cli.Flag{configFlag(), userFlag()},
		Action: r.Shuffle,
	}
}

// repeatCommand sets or cycles the repeat mode.
func repeatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "repeat",
		Usage: "Set repeat mode (off, track, queue), or cycle when omitted",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "mode"},
		},
		Flags:  []cli.Flag{configFlag(), userFlag()},
		Action: r.Repeat,
	}
}

// statusCommand shows the current provider playback state.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show current playback state",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// tuiCommand launches the interactive now-playing view.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive now-playing view",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.StringFlag{
				Name:    "queue",
				Aliases: []string{"q"},
				Usage:   "Path to a JSON file holding the track queue",
			},
			&cli.IntFlag{
				Name:  "index",
				Usage: "Queue index to start from",
				Value: 0,
			},
		},
		Action: r.TUI,
	}
}
