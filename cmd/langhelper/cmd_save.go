package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/practice"
	"github.com/felixgeelhaar/langhelper/internal/saver"
)

// cmdSave saves exercise files, queueing them when the backend is down
func cmdSave(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: langhelper save <file|dir> | --pending")
	}
	if args[0] == "--pending" {
		return cmdSavePending()
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.loadExercises(args[0])
	if err != nil {
		return err
	}

	outbox, err := a.newOutbox()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s := a.newSaver()
	queued := 0
	for _, entry := range entries {
		saved, err := outbox.SaveOrQueue(ctx, s, entry.Exercise, saver.SaveContext{
			Source:   "cli",
			Metadata: map[string]any{"fileName": filepath.Base(entry.Path)},
		})
		switch {
		case err != nil:
			fmt.Printf("  %s: %s\n", entry.Name, describeError(err))
		case saved:
			fmt.Printf("  %s: saved ✓\n", entry.Name)
		default:
			queued++
			fmt.Printf("  %s: queued\n", entry.Name)
		}
	}
	if queued > 0 {
		fmt.Println("Backend unavailable for some saves. Run 'langhelper save --pending' later.")
	}
	return nil
}

func cmdSavePending() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	outbox, err := a.newOutbox()
	if err != nil {
		return err
	}

	items, err := outbox.List()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("Nothing pending ✓")
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Retrying %d queued save(s)...\n", len(items))
	result, err := outbox.Flush(ctx, a.newSaver())
	fmt.Printf("Sent: %d  Failed: %d\n", result.Sent, result.Failed)
	return err
}

// cmdResults prints completed practice attempts
func cmdResults() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openResults()
	if err != nil {
		return err
	}

	results, err := store.List()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No completed practice yet.")
		return nil
	}

	fmt.Println("Practice Results:")
	for _, r := range results {
		pct := 0
		if r.Total > 0 {
			pct = r.Correct * 100 / r.Total
		}
		fmt.Printf("  %s  %-22s %d/%d (%d%%)  %s\n",
			r.CompletedAt.Local().Format(time.DateTime), r.Type, r.Correct, r.Total, pct, r.Source)
	}

	ov := practice.Summarize(results, time.Now())
	fmt.Printf("\nOverall: %d attempts, %.0f%% correct\n", ov.Attempts, ov.Accuracy*100)
	for _, st := range ov.ByType {
		fmt.Printf("  %-22s %d attempts  %.0f%%  %s\n", st.Type, st.Attempts, st.Accuracy*100, st.Trend)
	}
	return nil
}
