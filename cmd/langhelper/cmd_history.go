package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/domain"
	"github.com/felixgeelhaar/langhelper/internal/storage/sqlite"
)

// cmdHistory lists and shows the user's exercises
func cmdHistory(args []string) error {
	if len(args) < 1 {
		fmt.Println(`History commands:

  langhelper history list          List your exercises
  langhelper history show <uuid>   Show one exercise`)
		return nil
	}

	switch args[0] {
	case "list":
		return cmdHistoryList()
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("exercise uuid required")
		}
		return cmdHistoryShow(args[1])
	default:
		return fmt.Errorf("unknown history command: %s", args[0])
	}
}

func cmdHistoryList() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cache, closeCache, err := a.openHistoryCache()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx, cancel := signalContext()
	defer cancel()

	userID := a.cacheUserID()
	rows, err := a.client.History(ctx)
	switch {
	case err == nil:
		if cerr := cache.Replace(userID, rows); cerr != nil {
			a.logger.Warn("failed to cache history", "error", cerr)
		}
	case errors.Is(err, domain.ErrTransport):
		cached, cerr := cache.List(userID)
		if cerr != nil || len(cached) == 0 {
			return err
		}
		rows = cached
		last, _ := cache.LastSync(userID)
		fmt.Printf("Backend unreachable, showing cached history from %s\n\n", last.Local().Format(time.RFC1123))
	default:
		return err
	}

	if len(rows) == 0 {
		fmt.Println("No exercises yet. Try 'langhelper generate'.")
		return nil
	}

	fmt.Println("Your Exercises:")
	for i := range rows {
		row, err := rows[i].ToTableRow(a.client.PublicBaseURL())
		if err != nil {
			a.logger.Warn("skipping unreadable exercise", "uuid", rows[i].UUID, "error", err)
			continue
		}
		printTableRow(row)
	}
	return nil
}

func printTableRow(row *domain.ExerciseTableRow) {
	flags := []string{}
	if row.IsCompleted {
		flags = append(flags, "completed")
	}
	if row.IsPublic {
		flags = append(flags, "public")
	}

	fmt.Printf("  %s  %s (%d questions)\n", row.UUID, row.Type, row.QuestionsCount)
	if row.CreatedText != "" {
		fmt.Printf("    %s\n", row.CreatedText)
	}
	details := []string{}
	if row.Timestamp != "" {
		details = append(details, row.Timestamp)
	}
	if row.Source != "" {
		details = append(details, "source: "+row.Source)
	}
	if row.Difficulty != "" {
		details = append(details, "level: "+row.Difficulty)
	}
	if len(flags) > 0 {
		details = append(details, strings.Join(flags, ", "))
	}
	if len(details) > 0 {
		fmt.Printf("    %s\n", strings.Join(details, " | "))
	}
	if row.PublicURL != "" {
		fmt.Printf("    %s\n", row.PublicURL)
	}
	fmt.Println()
}

func cmdHistoryShow(id string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cache, closeCache, err := a.openHistoryCache()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx, cancel := signalContext()
	defer cancel()

	row, err := a.client.Exercise(ctx, id)
	if errors.Is(err, domain.ErrTransport) {
		if cached, cerr := cache.Get(id); cerr == nil {
			fmt.Println("Backend unreachable, showing cached copy")
			row, err = cached, nil
		}
	}
	if err != nil {
		return err
	}

	ex, err := row.ToExercise()
	if err != nil {
		return err
	}
	printExercise(ex)
	if row.IsPublic {
		fmt.Printf("\nPublic link: %s\n", domain.PublicURL(a.client.PublicBaseURL(), row.UUID))
	}
	return nil
}

func printExercise(ex *domain.Exercise) {
	fmt.Printf("Exercise: %s\n", ex.Type)
	if ex.CreatedText != "" {
		fmt.Printf("\n%s\n", ex.CreatedText)
	}
	fmt.Println("\nQuestions:")
	for i, q := range ex.Questions {
		fmt.Printf("  %d. %s\n", i+1, q)
	}
	fmt.Println("\nAnswers:")
	for i, ans := range ex.Answers {
		fmt.Printf("  %c) %s\n", 'a'+rune(i%26), ans)
	}
}

// cmdPublish toggles whether an exercise is shared
func cmdPublish(args []string) error {
	if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
		return fmt.Errorf("usage: langhelper publish <uuid> on|off")
	}
	isPublic := args[1] == "on"

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.client.TogglePublic(ctx, args[0], isPublic)
	if err != nil {
		return err
	}

	if cache, closeCache, cerr := a.openHistoryCache(); cerr == nil {
		if serr := cache.SetPublic(args[0], result.IsPublic); serr != nil && !errors.Is(serr, sqlite.ErrNotCached) {
			a.logger.Warn("failed to update cache", "error", serr)
		}
		closeCache()
	}

	if !result.IsPublic {
		fmt.Println("Exercise is now private ✓")
		return nil
	}
	link := result.PublicURL
	if link == "" {
		link = domain.PublicURL(a.client.PublicBaseURL(), args[0])
	}
	fmt.Println("Exercise is now public ✓")
	fmt.Printf("Share this link: %s\n", link)
	return nil
}
