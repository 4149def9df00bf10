package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/langhelper/internal/config"
)

// cmdInit creates ~/.langhelper and writes the default configuration
func cmdInit() error {
	fmt.Println("langhelper - First-Time Setup")
	fmt.Println("=============================")
	fmt.Println()

	fmt.Print("Creating ~/.langhelper directory structure... ")
	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	if _, err := os.Stat(configPath(dir)); os.IsNotExist(err) {
		fmt.Print("Creating default configuration... ")
		if err := config.SaveConfig(dir, config.DefaultConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	fmt.Println()
	fmt.Printf("Edit %s to point at your backend, then run 'langhelper login'.\n", configPath(dir))
	return nil
}

// cmdConfig prints the effective configuration
func cmdConfig() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	fmt.Printf("Configuration (%s)\n", configPath(dir))
	fmt.Println("==========================")
	fmt.Print(string(data))
	return nil
}

// cmdHealth checks that the backend answers its health endpoint
func cmdHealth() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	status, err := a.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("backend %s: %w", a.cfg.API.BaseURL, err)
	}

	fmt.Printf("Backend %s is up ✓\n", a.cfg.API.BaseURL)
	for k, v := range status {
		fmt.Printf("  %s: %v\n", k, v)
	}
	return nil
}
