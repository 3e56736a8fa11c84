package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// runInteractive is the default REPL: read a command, execute it, repeat.
func runInteractive() error {
	ctx := context.Background()
	a, cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	defer log.Sync()

	fmt.Printf("%s deskmate %s — type a command, or 'exit' to quit\n",
		color.CyanString("▸"), Version())
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider != "ollama" && cfg.LLM.Provider != "none" {
		fmt.Printf("%s no API key for provider %q; using pattern planning only\n",
			color.YellowString("⚠"), cfg.LLM.Provider)
	}

	for {
		fmt.Printf("\n%s ", color.CyanString(">"))
		line, err := stdin.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		utterance := strings.TrimSpace(line)
		switch utterance {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if _, err := runOne(a, utterance); err != nil {
			fmt.Printf("%s %v\n", color.RedString("✗"), err)
		}
	}
}
