package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/router-for-me/CozeSDK/sdk/coze"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/workflow"
)

// WorkflowOptions selects a workflow and its JSON encoded parameters.
type WorkflowOptions struct {
	WorkflowID string
	Parameters string
	Stream     bool
}

// DoWorkflow runs a workflow, streaming node output when requested.
func DoWorkflow(ctx context.Context, cz *coze.Client, opts WorkflowOptions, out io.Writer) error {
	req := workflow.RunRequest{WorkflowID: strings.TrimSpace(opts.WorkflowID)}
	if p := strings.TrimSpace(opts.Parameters); p != "" {
		if err := json.Unmarshal([]byte(p), &req.Parameters); err != nil {
			return apierr.Validation("parameters must be a JSON object: %v", err)
		}
	}

	if !opts.Stream {
		res, err := cz.Workflows.Run(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Data)
		if res.DebugURL != "" {
			fmt.Fprintf(out, "debug: %s\n", res.DebugURL)
		}
		return nil
	}

	ch, err := cz.Workflows.Stream(ctx, req)
	if err != nil {
		return err
	}
	for chunk := range ch {
		if chunk.Err != nil {
			return chunk.Err
		}
		ev := chunk.Value
		switch {
		case ev.Message != nil:
			fmt.Fprint(out, ev.Message.Content)
			if ev.Message.NodeIsFinish {
				fmt.Fprintln(out)
			}
		case ev.Error != nil:
			return fmt.Errorf("workflow error %d: %s", ev.Error.ErrorCode, ev.Error.ErrorMessage)
		case ev.Interrupt != nil:
			fmt.Fprintf(out, "interrupted at %s (event %s, type %d)\n",
				ev.Interrupt.NodeTitle, ev.Interrupt.InterruptData.EventID, ev.Interrupt.InterruptData.Type)
		case ev.Done != nil && ev.Done.DebugURL != "":
			fmt.Fprintf(out, "debug: %s\n", ev.Done.DebugURL)
		}
	}
	return nil
}
