// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL  string
	mode       string
	debate     string
	provider   string
	noStream   bool
	jsonOutput bool
	userID     string

	rootCmd = &cobra.Command{
		Use:   "verdict",
		Short: "A cli for the Aleutian adversarial judgment service",
		Long: `Verdict submits a decision question to the judgment service and
streams the run back: four reasoning engines, verdict synthesis, and
an adversarial debate with a tamper-evident result.`,
	}

	judgeCmd = &cobra.Command{
		Use:   "judge [question]",
		Short: "Run one judgment over the given question",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runJudge,
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check that the judgment service is up",
		RunE:  runHealth,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		"http://localhost:12230", "Base URL of the judgment service")

	judgeCmd.Flags().StringVar(&mode, "mode", "base", "Judgment mode: base or deep")
	judgeCmd.Flags().StringVar(&debate, "debate", "arena", "Debate selection: arena, all or none")
	judgeCmd.Flags().StringVar(&provider, "provider", "", "Provider preference: openai or anthropic")
	judgeCmd.Flags().BoolVar(&noStream, "no-stream", false, "Return one JSON result instead of the event stream")
	judgeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Force raw NDJSON output even on a terminal")
	judgeCmd.Flags().StringVar(&userID, "user", "", "Debug user id attached to the run")

	rootCmd.AddCommand(judgeCmd)
	rootCmd.AddCommand(healthCmd)
}
