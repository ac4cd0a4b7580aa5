// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// authCommand handles session lifecycle operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the login session",
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Create an account and log in",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Display name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email address",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Password",
						Required: true,
					},
				},
				Action: r.AuthRegister,
			},
			{
				Name:  "login",
				Usage: "Log in with existing credentials",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email address",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Password",
						Required: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Clear the persisted session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the current session, if any",
				Action: r.AuthStatus,
			},
		},
	}
}

// uploadCommand runs the restoration pipeline for one file
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Upload a degraded image and register a restoration job",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "path",
				Max:  1,
			},
		},
		Action: r.Upload,
	}
}

// jobsCommand handles job-history operations
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect restoration jobs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List jobs for the logged-in user, one page at a time",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "page",
						Usage: "1-indexed page number",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Output CSV",
					},
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "Serve from the local cache without a network call",
					},
				},
				Action: r.JobsList,
			},
			{
				Name:  "watch",
				Usage: "Poll the current page until interrupted",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "page",
						Usage: "1-indexed page number",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "interval",
						Usage: "Seconds between polls",
						Value: 10,
					},
				},
				Action: r.JobsWatch,
			},
		},
	}
}

// setupCommand writes a starter configuration file
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write an example config.toml",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// tuiCommand returns the top-level TUI command for the interactive dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "dashboard"},
		Usage:   "Launch the interactive dashboard",
		Action:  r.TUI,
	}
}
