package main

import (
	"fmt"
)

// cmdExercises lists the exercise files kept in ~/.langhelper/exercises
func cmdExercises() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	loader := a.exercises()
	entries, errs := loader.LoadAll()
	for _, err := range errs {
		fmt.Printf("  skipped: %v\n", err)
	}
	if len(entries) == 0 {
		fmt.Printf("No exercise files in %s\n", loader.BasePath())
		return nil
	}

	fmt.Println("Local Exercises:")
	for _, e := range entries {
		fmt.Printf("  %-24s %s (%d questions)\n", e.Name, e.Exercise.Type, len(e.Exercise.Questions))
	}
	fmt.Println("\nUse 'langhelper practice --file <name>.json' to practice one")
	return nil
}
