package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"changelog-bot/internal/pipeline"
)

// promptConfirm shows every post and only accepts an answer of "Y".
func promptConfirm(in io.Reader, out io.Writer) pipeline.Confirmer {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, p pipeline.Publication) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "%s\n", p.Message)
		fmt.Fprintf(out, "Post %d entries of %s? (type Y to post) ", p.Delta.Len(), p.Build)

		answer, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || answer == "") {
			return false, err
		}
		return strings.TrimSpace(answer) == "Y", nil
	}
}
