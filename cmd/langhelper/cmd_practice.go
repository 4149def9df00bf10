package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/langhelper/internal/practice"
)

// cmdPractice runs an interactive attempt at an exercise
func cmdPractice(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: langhelper practice <uuid> | --public <uuid|link> | --file <exercise.json|yaml>")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	var req practice.OpenRequest
	switch args[0] {
	case "--file":
		if len(args) < 2 {
			return fmt.Errorf("exercise file required")
		}
		entry, err := a.exercises().Load(args[1])
		if err != nil {
			return err
		}
		req = practice.OpenRequest{Exercise: entry.Exercise, Source: "file"}
	case "--public":
		if len(args) < 2 {
			return fmt.Errorf("public uuid or link required")
		}
		row, err := a.client.PublicExercise(ctx, args[1])
		if err != nil {
			return err
		}
		ex, err := row.ToExercise()
		if err != nil {
			return err
		}
		req = practice.OpenRequest{Exercise: *ex, ExerciseUUID: row.UUID, Source: "public"}
	default:
		row, err := a.client.Exercise(ctx, args[0])
		if err != nil {
			return err
		}
		ex, err := row.ToExercise()
		if err != nil {
			return err
		}
		req = practice.OpenRequest{Exercise: *ex, ExerciseUUID: row.UUID, Source: "history"}
	}

	svc, err := a.newPractice()
	if err != nil {
		return err
	}
	sess, err := svc.Open(req)
	if err != nil {
		return err
	}
	defer svc.Close(sess.ID)

	return runPractice(svc, sess, os.Stdin, os.Stdout)
}

// runPractice reads commands from in until the session is done or the user quits
func runPractice(svc *practice.Service, sess *practice.Session, in io.Reader, out io.Writer) error {
	ex := sess.Exercise()
	fmt.Fprintf(out, "Exercise: %s\n", ex.Type)
	if ex.CreatedText != "" {
		fmt.Fprintf(out, "\n%s\n", ex.CreatedText)
	}

	if sess.Mode == practice.ModeView {
		for i, q := range ex.Questions {
			fmt.Fprintf(out, "  %d. %s\n", i+1, q)
			if i < len(ex.Answers) {
				fmt.Fprintf(out, "     %s\n", ex.Answers[i])
			}
		}
		return nil
	}

	printPracticeHelp(out, sess.Mode)
	if err := printStatus(svc, sess.ID, out); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		done, err := practiceCommand(svc, sess, fields, out)
		if err != nil {
			fmt.Fprintf(out, "  %s\n", practiceMessage(err))
			continue
		}
		if done {
			return nil
		}
	}
}

func practiceCommand(svc *practice.Service, sess *practice.Session, fields []string, out io.Writer) (bool, error) {
	switch fields[0] {
	case "quit", "q", "exit":
		return true, nil
	case "help", "?":
		printPracticeHelp(out, sess.Mode)
		return false, nil
	case "status", "s":
		return false, printStatus(svc, sess.ID, out)
	case "reset":
		if err := svc.Reset(sess.ID); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "  Cleared.")
		return false, printStatus(svc, sess.ID, out)

	case "place", "p":
		if len(fields) < 3 {
			return false, errors.New("usage: place <question number> <answer letter>")
		}
		slot, err := parseSlot(fields[1])
		if err != nil {
			return false, err
		}
		answer, err := parseLetter(fields[2])
		if err != nil {
			return false, err
		}
		correct, err := svc.Place(sess.ID, slot, answer)
		if err != nil {
			return false, err
		}
		if correct {
			fmt.Fprintln(out, "  Correct ✓")
		} else {
			fmt.Fprintln(out, "  Not quite; the answer goes back shortly.")
		}
		st, err := svc.Status(sess.ID)
		if err != nil {
			return false, err
		}
		if st.Complete {
			fmt.Fprintf(out, "\nAll matched! %d of %d on the board.\n", st.Correct, st.Total)
			return true, nil
		}
		return false, nil

	case "answer", "a":
		if len(fields) < 3 {
			return false, errors.New("usage: answer <question number> <your answer>")
		}
		slot, err := parseSlot(fields[1])
		if err != nil {
			return false, err
		}
		return false, svc.Answer(sess.ID, slot, strings.Join(fields[2:], " "))

	case "check", "c":
		feedback, err := svc.Check(sess.ID)
		if err != nil {
			return false, err
		}
		correct := 0
		for i := 0; i < len(feedback); i++ {
			mark := "✗"
			if feedback[i] {
				mark = "✓"
				correct++
			}
			fmt.Fprintf(out, "  %d. %s\n", i+1, mark)
		}
		fmt.Fprintf(out, "\n%d of %d correct\n", correct, len(feedback))
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %q (type help)", fields[0])
	}
}

func printPracticeHelp(out io.Writer, mode practice.Mode) {
	fmt.Fprintln(out, "\nCommands:")
	switch mode {
	case practice.ModeMatching:
		fmt.Fprintln(out, "  place <n> <letter>   Put an answer into question n")
	case practice.ModeScalar:
		fmt.Fprintln(out, "  answer <n> <text>    Answer question n")
		fmt.Fprintln(out, "  check                Grade once every question is answered")
	}
	fmt.Fprintln(out, "  status               Show the board")
	fmt.Fprintln(out, "  reset                Start over")
	fmt.Fprintln(out, "  quit                 Leave")
}

func printStatus(svc *practice.Service, id string, out io.Writer) error {
	st, err := svc.Status(id)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	for _, slot := range st.Slots {
		answer := slot.Answer
		if answer == "" {
			answer = "_____"
		}
		fmt.Fprintf(out, "  %d. %s  [%s] %s\n", slot.Index+1, slot.Question, answer, slot.State)
	}
	if st.Mode == practice.ModeMatching {
		fmt.Fprintln(out, "\n  Answers:")
		for _, a := range st.Answers {
			used := ""
			if a.Placed {
				used = " (placed)"
			}
			fmt.Fprintf(out, "    %s) %s%s\n", answerLabel(a.ID), a.Text, used)
		}
	}
	fmt.Fprintln(out)
	return nil
}

// answerLabel names answers a to z, then by number so the label still
// parses back through parseLetter.
func answerLabel(id int) string {
	if id < 26 {
		return string(rune('a' + id))
	}
	return strconv.Itoa(id + 1)
}

func parseSlot(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("question number must be 1 or more, got %q", s)
	}
	return n - 1, nil
}

func parseLetter(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil && n >= 1 {
		return n - 1, nil
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("answer must be a letter, got %q", s)
	}
	c := strings.ToLower(s)[0]
	if c < 'a' || c > 'z' {
		return 0, fmt.Errorf("answer must be a letter, got %q", s)
	}
	return int(c - 'a'), nil
}

func practiceMessage(err error) string {
	switch {
	case errors.Is(err, practice.ErrRejected):
		return "That answer is already placed or the question is taken."
	case errors.Is(err, practice.ErrNotReady):
		return "Answer every question before checking."
	case errors.Is(err, practice.ErrWrongMode):
		return "That command does not apply to this exercise."
	default:
		return err.Error()
	}
}
