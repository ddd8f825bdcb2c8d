package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/ghostkeeper/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	profilesPath := flag.String("file", "", "profiles file to open (overrides profiles_path)")
	importPath := flag.String("import", "", "import ghosts from this file before starting")
	force := flag.Bool("force", false, "upload results slower than the scoreboard as non-competitive")
	headless := flag.Bool("headless", false, "run fast-follow without the terminal UI")
	pollSeconds := flag.Int("poll", 0, "watch poll interval in seconds (optional, defaults to poll_interval)")
	version := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *version {
		fmt.Println("ghostkeeper", app.Version)
		return 0
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:   *configPath,
		ProfilesPath: *profilesPath,
		ImportPath:   *importPath,
		Force:        *force,
		Headless:     *headless,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "ghostkeeper: %v\n", err)
		return 1
	}
	return 0
}
