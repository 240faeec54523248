package config

import (
	"flag"
	"os"

	"github.com/vterekhov/recordsync/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags. Only
// the flags handled here are parsed, via flagx.FilterArgs, so commands can
// define their own flags without interference.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-p", "-actor", "-token"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "record server base URL")
	fs.StringVar(&cfg.PushURL, "p", cfg.PushURL, "push channel websocket URL")
	fs.StringVar(&cfg.ActorID, "actor", cfg.ActorID, "actor identity")
	fs.StringVar(&cfg.ActorToken, "token", cfg.ActorToken, "actor bearer token")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
