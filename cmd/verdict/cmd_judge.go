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
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianVerdict/pkg/ux"
	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// maxEventLine bounds one NDJSON line; the final event carries the whole
// hash chain, so the default bufio limit is far too small.
const maxEventLine = 16 * 1024 * 1024

// judgeHTTPClient has no overall timeout: a deep all-to-all run legitimately
// streams for minutes. Cancellation is ^C closing the connection.
var judgeHTTPClient = &http.Client{}

func runJudge(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	body := datatypes.JudgeRequest{
		Prompt: question,
		Mode:   mode,
		Debate: debate,
	}
	if provider != "" {
		body.ProviderPreference = &provider
	}
	if noStream {
		stream := false
		body.Stream = &stream
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(serverURL, "/") + "/v1/judge"
	if userID != "" {
		endpoint += "?debug_user_id=" + url.QueryEscape(userID)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
		endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := judgeHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("call judgment service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("judgment service returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	if noStream {
		return renderResult(resp.Body)
	}

	renderer := ux.NewEventRenderer(os.Stdout, jsonOutput)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxEventLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		renderer.RenderLine(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

// renderResult prints a non-streamed RunResult: raw JSON on a pipe, a
// short human summary on a terminal.
func renderResult(body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read result: %w", err)
	}

	renderer := ux.NewEventRenderer(os.Stdout, jsonOutput)
	if !renderer.Pretty() {
		fmt.Println(strings.TrimSpace(string(data)))
		return nil
	}

	var result datatypes.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	fmt.Printf("run      %s (ok=%v)\n", result.RunID, result.OK)
	if result.BaseJudgment != nil {
		fmt.Printf("verdict  %s conf=%.2f\n", result.BaseJudgment.Label, result.BaseJudgment.Confidence)
		fmt.Printf("         %s\n", result.BaseJudgment.OneLiner)
	}
	if result.Deep != nil {
		fmt.Printf("deep     %s conf=%.2f\n", result.Deep.Label, result.Deep.Confidence)
	}
	if winner := result.DebateResult.Winner(); winner != "" {
		fmt.Printf("debate   winner=%s\n", winner)
	}
	fmt.Printf("chain    %s\n", result.Integrity.ChainHeadHash)
	fmt.Printf("snapshot %s\n", result.Integrity.DecisionSnapshotHash)
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	endpoint := strings.TrimRight(serverURL, "/") + "/health"
	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("judgment service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("judgment service unhealthy: %s", resp.Status)
	}
	fmt.Println("ok")
	return nil
}
