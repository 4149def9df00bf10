package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/langhelper/internal/api"
	"github.com/felixgeelhaar/langhelper/internal/saver"
)

// cmdGenerate asks the backend for a new exercise and saves it to history
func cmdGenerate(args []string) error {
	if len(args) < 4 {
		kinds := make([]string, len(api.Kinds))
		for i, k := range api.Kinds {
			kinds[i] = string(k)
		}
		return fmt.Errorf("usage: langhelper generate <%s> <level> <age> <topic>", strings.Join(kinds, "|"))
	}

	kind, err := api.ParseKind(args[0])
	if err != nil {
		return err
	}
	params := api.GenerationParams{
		Level: args[1],
		Age:   args[2],
		Topic: strings.Join(args[3:], " "),
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Generating %s exercise about %q (this can take up to %s)...\n",
		kind, params.Topic, a.cfg.API.GenerationTimeout())

	gen, err := a.client.Generate(ctx, kind, params)
	if err != nil {
		return err
	}
	printExercise(&gen.Exercise)

	meta := map[string]any{"level": params.Level, "age": params.Age, "topic": params.Topic}
	for k, v := range gen.Metadata {
		meta[k] = v
	}
	reportSave(a.newSaver().SaveWithContext(ctx, gen.Exercise, saver.SaveContext{
		Source:   "api-generation",
		Metadata: meta,
	}))
	return nil
}

// cmdUpload turns a document into an exercise through the OCR endpoint
func cmdUpload(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: langhelper upload <file>")
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	gen, err := a.client.UploadDocument(ctx, args[0], file)
	if err != nil {
		return err
	}
	printExercise(&gen.Exercise)

	source, _ := gen.Metadata["source"].(string)
	reportSave(a.newSaver().SaveWithContext(ctx, gen.Exercise, saver.SaveContext{
		Source:   source,
		Metadata: gen.Metadata,
	}))
	return nil
}

func reportSave(saved bool, err error) {
	switch {
	case err != nil:
		fmt.Printf("\nNot saved: %s\n", describeError(err))
	case saved:
		fmt.Println("\nSaved to your history ✓")
	default:
		fmt.Println("\nCould not save the exercise. Run 'langhelper save <file>' to retry later.")
	}
}
