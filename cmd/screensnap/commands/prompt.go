package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/xstring"
)

const promptTitleMaxLength = 80

// Prompt asks the user to pick one of the windows matching a query.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{
		In:  in,
		Out: out,
	}
}

func printWindowTable(out io.Writer, windows []capturetarget.Target) {
	fmt.Fprintf(out, "%4s  %8s  %-20s  %s\n", "#", "PID", "PROCESS", "TITLE")
	for idx, w := range windows {
		fmt.Fprintf(out, "%4d  %8d  %-20s  %s\n",
			idx+1,
			w.ProcessID,
			xstring.Truncate(xstring.ToPrintable(w.ProcessName), 20),
			xstring.Truncate(xstring.ToPrintable(w.Name), promptTitleMaxLength),
		)
	}
}

// ChooseWindow prints the candidates and reads the number of the chosen
// one. Invalid answers are asked again; "q" or the end of the input
// aborts the selection.
func (p *Prompt) ChooseWindow(
	ctx context.Context,
	query string,
	candidates []capturetarget.Target,
) (_ret capturetarget.Target, _err error) {
	logger.Debugf(ctx, "ChooseWindow(ctx, %q, %d candidates)", query, len(candidates))
	defer func() { logger.Debugf(ctx, "/ChooseWindow(ctx, %q): %s %v", query, _ret, _err) }()

	if len(candidates) == 0 {
		return capturetarget.Target{}, capturetarget.ErrNoMatchingWindow{Query: query}
	}

	fmt.Fprintf(p.Out, "%d windows match %q:\n", len(candidates), query)
	printWindowTable(p.Out, candidates)

	scanner := bufio.NewScanner(p.In)
	for {
		if err := ctx.Err(); err != nil {
			return capturetarget.Target{}, err
		}
		fmt.Fprintf(p.Out, "Choose a window [1-%d] or 'q' to quit: ", len(candidates))
		if !scanner.Scan() {
			fmt.Fprintln(p.Out)
			if err := scanner.Err(); err != nil {
				return capturetarget.Target{}, fmt.Errorf("unable to read the answer: %w", err)
			}
			return capturetarget.Target{}, ErrSelectionAborted{Reason: "end of input"}
		}

		answer := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(answer) {
		case "q", "quit", "exit":
			return capturetarget.Target{}, ErrSelectionAborted{}
		}

		num, err := strconv.Atoi(answer)
		if err != nil || num < 1 || num > len(candidates) {
			fmt.Fprintf(p.Out, "%q is not a number from 1 to %d\n", answer, len(candidates))
			continue
		}
		return candidates[num-1], nil
	}
}
