package provider

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const cliTimeout = 2 * time.Minute

// CLIProvider shells out to a local agent binary (claude, llm, ...) with the
// flattened conversation as its final argument.
type CLIProvider struct {
	binaryPath string
	args       []string
}

func NewCLIProvider(binaryPath string, args []string) (*CLIProvider, error) {
	if binaryPath == "" {
		return nil, fmt.Errorf("binary path is required for CLI provider")
	}
	return &CLIProvider{
		binaryPath: binaryPath,
		args:       args,
	}, nil
}

func (p *CLIProvider) Name() string {
	return "cli-" + p.binaryPath
}

// prompt folds the system instruction and earlier turns into one text.
func (p *CLIProvider) prompt(req Request) string {
	var sb strings.Builder
	if req.System != "" {
		sb.WriteString(req.System)
		sb.WriteString("\n\n")
	}
	if len(req.Messages) > 1 {
		for _, m := range req.Messages[:len(req.Messages)-1] {
			sb.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(lastUserMessage(req.Messages))
	return sb.String()
}

func (p *CLIProvider) command(ctx context.Context, req Request) *exec.Cmd {
	fullArgs := append(append([]string{}, p.args...), p.prompt(req))
	return exec.CommandContext(ctx, p.binaryPath, fullArgs...) // #nosec G204
}

func (p *CLIProvider) Chat(ctx context.Context, req Request) (*Response, error) {
	execCtx, cancel := context.WithTimeout(ctx, cliTimeout)
	defer cancel()

	output, err := p.command(execCtx, req).CombinedOutput()
	result := string(output)
	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("cli agent timed out: %w", err)
		}
		return nil, fmt.Errorf("cli agent failed: %w\nOutput: %s", err, result)
	}

	return &Response{
		Content: result,
		Usage:   Usage{TotalTokens: len(strings.Fields(result))},
	}, nil
}

// Stream forwards the agent's stdout line by line.
func (p *CLIProvider) Stream(ctx context.Context, req Request, fn StreamFunc) (*Response, error) {
	execCtx, cancel := context.WithTimeout(ctx, cliTimeout)
	defer cancel()

	cmd := p.command(execCtx, req)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cli agent failed to start: %w", err)
	}

	var sb strings.Builder
	var fnErr error
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text() + "\n"
		sb.WriteString(line)
		if fnErr == nil {
			fnErr = fn(line)
		}
	}

	if err := cmd.Wait(); err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("cli agent timed out: %w", err)
		}
		return nil, fmt.Errorf("cli agent failed: %w", err)
	}
	if fnErr != nil {
		return nil, fnErr
	}

	result := sb.String()
	return &Response{
		Content: result,
		Usage:   Usage{TotalTokens: len(strings.Fields(result))},
	}, nil
}
