package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crossver/crossver/internal/log"
	"github.com/crossver/crossver/internal/manifest"
	"github.com/crossver/crossver/internal/pubsub"
	"github.com/crossver/crossver/internal/resolver"
	"github.com/crossver/crossver/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the manifest directory and reload registrations on change",
	Long: `Run crossver as a long-lived process that watches the manifest
directory. When a manifest file changes, the registry is rebuilt and the
snapshot cache flushed, so subsequent resolutions see the new
registrations. Snapshot lifecycle events are printed as they happen.

Example:
  crossver watch
  crossver watch --manifest-dir ./manifests`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	// With auto_reload off the command still streams snapshot events,
	// it just never rebuilds registrations on disk changes.
	var changes <-chan struct{}
	if cfg.AutoReload {
		w, err := watcher.New(watcher.Config{
			ManifestDir: cfg.ManifestDir,
			DebounceDur: cfg.ReloadDebounce,
		})
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		changes, err = w.Start()
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer func() { _ = w.Stop() }()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events := svc.Subscribe(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if cfg.AutoReload {
		fmt.Printf("Watching %s for manifest changes\n", cfg.ManifestDir)
	} else {
		fmt.Println("auto_reload disabled: streaming snapshot events only")
	}
	fmt.Println("Press Ctrl+C to stop")

	for {
		select {
		case sig := <-sigCh:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			return nil

		case <-changes:
			if err := reloadManifests(ctx, svc); err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				fmt.Println("Manifests reloaded")
			}

		case event, ok := <-events:
			if !ok {
				return nil
			}
			printSnapshotEvent(event)
		}
	}
}

func printSnapshotEvent(event pubsub.Event[resolver.SnapshotEvent]) {
	switch event.Type {
	case pubsub.MountedEvent:
		fmt.Printf("[%s] mounted %s into snapshot %s\n",
			event.Timestamp.Format("15:04:05"), event.Payload.Subsystem, event.Payload.SnapshotID)
	default:
		fmt.Printf("[%s] resolved %s snapshot %s (target %s, %d subsystems)\n",
			event.Timestamp.Format("15:04:05"), event.Payload.Scope,
			event.Payload.SnapshotID, event.Payload.Target, event.Payload.Subsystems)
	}
}

func reloadManifests(ctx context.Context, svc reloader) error {
	files, err := manifest.LoadSubsystemManifests(os.DirFS(cfg.ManifestDir))
	if err != nil {
		log.ErrorErr(log.CatWatcher, "Reload aborted, manifests unreadable", err)
		return err
	}
	if err := svc.Reload(ctx, files); err != nil {
		log.ErrorErr(log.CatWatcher, "Reload aborted, registrations invalid", err)
		return err
	}
	return nil
}

// reloader is the slice of the resolution service the watch loop needs.
type reloader interface {
	Reload(ctx context.Context, files []manifest.SubsystemFile) error
}
